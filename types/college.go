package types

// StatusCounts breaks a set of user records down by approval status.
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
}

// Add counts one record with the given status.
func (c *StatusCounts) Add(status Status) {
	c.Total++
	switch status {
	case StatusPending:
		c.Pending++
	case StatusApproved:
		c.Approved++
	case StatusDenied:
		c.Denied++
	}
}

// CollegeStats aggregates the dependent records of a management
// record. The same membership predicate backs the cascade delete, so
// the two views always agree on what belongs to a college.
type CollegeStats struct {
	Wardens  StatusCounts `json:"wardens"`
	Students StatusCounts `json:"students"`
}

// CascadeResult reports the outcome of a college cascade delete.
type CascadeResult struct {
	WardensDeleted  int `json:"wardens_deleted"`
	StudentsDeleted int `json:"students_deleted"`
}
