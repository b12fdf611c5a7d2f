// Package events publishes user lifecycle notifications through the
// message broker. Subscribers (mailers, audit sinks, presentation
// gateways) observe committed changes without polling the store.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hoas/apiserver/internal/mq"
	"github.com/hoas/apiserver/types"
)

// Channel names, one per event kind.
const (
	ChannelUserCreated       = "hoas.user.created"
	ChannelUserStatusChanged = "hoas.user.status_changed"
	ChannelUserDeleted       = "hoas.user.deleted"
	ChannelCollegeDeleted    = "hoas.college.deleted"
)

// UserEvent is the payload published for record creation, deletion
// and status changes.
type UserEvent struct {
	EventID        string       `json:"event_id"`
	UserID         string       `json:"user_id"`
	Role           types.Role   `json:"role"`
	Status         types.Status `json:"status"`
	PreviousStatus types.Status `json:"previous_status,omitempty"`
	ManagementID   string       `json:"management_id,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// CollegeEvent is the payload published after a cascade delete.
type CollegeEvent struct {
	EventID         string    `json:"event_id"`
	CollegeID       string    `json:"college_id"`
	WardensDeleted  int       `json:"wardens_deleted"`
	StudentsDeleted int       `json:"students_deleted"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher emits events over the broker bus. Publishing is
// best-effort: a broker failure is logged and the request proceeds.
type Publisher struct {
	bus *mq.Bus
}

func NewPublisher(bus *mq.Bus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) UserCreated(ctx context.Context, user types.User) {
	p.publish(ctx, ChannelUserCreated, UserEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Role:         user.Role,
		Status:       user.Status,
		ManagementID: user.ManagementID,
		OccurredAt:   time.Now(),
	})
}

func (p *Publisher) UserStatusChanged(ctx context.Context, user types.User, previous types.Status) {
	p.publish(ctx, ChannelUserStatusChanged, UserEvent{
		EventID:        uuid.NewString(),
		UserID:         user.ID,
		Role:           user.Role,
		Status:         user.Status,
		PreviousStatus: previous,
		ManagementID:   user.ManagementID,
		OccurredAt:     time.Now(),
	})
}

func (p *Publisher) UserDeleted(ctx context.Context, user types.User) {
	p.publish(ctx, ChannelUserDeleted, UserEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Role:         user.Role,
		Status:       user.Status,
		ManagementID: user.ManagementID,
		OccurredAt:   time.Now(),
	})
}

func (p *Publisher) CollegeDeleted(ctx context.Context, collegeID string, result types.CascadeResult) {
	p.publish(ctx, ChannelCollegeDeleted, CollegeEvent{
		EventID:         uuid.NewString(),
		CollegeID:       collegeID,
		WardensDeleted:  result.WardensDeleted,
		StudentsDeleted: result.StudentsDeleted,
		OccurredAt:      time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("events: marshal %s failed: %v", channel, err)
		return
	}
	if _, err := p.bus.Publish(ctx, channel, data, nil); err != nil {
		log.Printf("events: publish %s failed: %v", channel, err)
	}
}
