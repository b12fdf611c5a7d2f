package store

import (
	"testing"
	"time"

	"github.com/hoas/apiserver/types"
)

// fakeRow replays a fixed column tuple into scanUser.
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = r.values[i].(string)
		case *types.Role:
			*target = r.values[i].(types.Role)
		case *types.Status:
			*target = r.values[i].(types.Status)
		case *time.Time:
			*target = r.values[i].(time.Time)
		case **time.Time:
			*target = r.values[i].(*time.Time)
		case *[]byte:
			*target = r.values[i].([]byte)
		default:
			// sql.NullString and friends take their zero value.
		}
	}
	return nil
}

func userRowValues(profileJSON []byte) []any {
	now := time.Now()
	return []any{
		"u1",                 // id
		"u1@example.com",     // email
		"U One",              // display_name
		"",                   // photo_url
		types.RoleStudent,    // role
		types.StatusApproved, // status
		nil,                  // management_id (NullString)
		profileJSON,          // profile
		now,                  // created_at
		now,                  // updated_at
		(*time.Time)(nil),    // approved_at
		"",                   // approved_by
		(*time.Time)(nil),    // denied_at
		"",                   // denied_by
		"",                   // denial_reason
	}
}

func TestScanUserDecodesProfile(t *testing.T) {
	row := fakeRow{values: userRowValues([]byte(`{"roll_number":"R-9","room_number":"314"}`))}

	user, err := scanUser(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if user.Profile.RollNumber != "R-9" || user.Profile.RoomNumber != "314" {
		t.Fatalf("profile not decoded: %+v", user.Profile)
	}
}

func TestScanUserRejectsCorruptProfile(t *testing.T) {
	row := fakeRow{values: userRowValues([]byte(`{not json`))}

	if _, err := scanUser(row); err == nil {
		t.Fatal("corrupt profile document must not scan as an empty profile")
	}
}

func TestScanUserAllowsEmptyProfile(t *testing.T) {
	row := fakeRow{values: userRowValues(nil)}

	user, err := scanUser(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if user.Profile != (types.Profile{}) {
		t.Fatalf("want zero profile, got %+v", user.Profile)
	}
}
