package attendance

import (
	"context"
	"time"
)

// Repository stores attendance records.
type Repository interface {
	// Create inserts if absent.
	// Returns ErrAttendanceAlreadyExists when the (student, date) pair is taken.
	Create(ctx context.Context, record *Record) error

	// GetByID returns ErrAttendanceNotFound when missing.
	GetByID(ctx context.Context, id string) (*Record, error)

	Update(ctx context.Context, record *Record) error

	Delete(ctx context.Context, id string) error

	// ListAttendance returns every record of one student.
	ListAttendance(ctx context.Context, studentID string) ([]*Record, error)

	// ListRange returns records with from <= date <= to.
	ListRange(ctx context.Context, from, to time.Time) ([]*Record, error)

	// CountPresent returns the number of presence records across the class.
	CountPresent(ctx context.Context) (int, error)
}
