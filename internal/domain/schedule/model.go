package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Block types a doctor can be blocked out for.
const (
	BlockLeave    = "LEAVE"
	BlockSurgery  = "SURGERY"
	BlockClinic   = "CLINIC"
	BlockAdmin    = "ADMIN"
	BlockTraining = "TRAINING"
)

// ScheduleBlock is a doctor's unavailability window. StartTime/EndTime are
// HH:mm strings; when both are empty the block covers the whole of each day
// in [StartDate, EndDate].
type ScheduleBlock struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	StartTime string    `db:"start_time" json:"start_time,omitempty"`
	EndTime   string    `db:"end_time" json:"end_time,omitempty"`
	BlockType string    `db:"block_type" json:"block_type"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FullDay reports whether the block covers the entire time-of-day axis.
func (b *ScheduleBlock) FullDay() bool {
	return b.StartTime == "" && b.EndTime == ""
}
