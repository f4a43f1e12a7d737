// Package attendance contains daily presence records.
package attendance

import (
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// Points earned per record.
const (
	PresentPoints = 1.0
	AbsentPoints  = -0.5
)

// Record marks whether a student was present on a school day.
// There is at most one record per (student, date) pair.
type Record struct {
	ID        string
	StudentID string

	// Date is midnight of the school day.
	Date time.Time

	Present   bool
	Notes     string
	PostedBy  string
	CreatedAt time.Time
}

// NewRecord builds a record for day. today is midnight of the current school day;
// days after it are rejected.
func NewRecord(id, studentID string, day, today time.Time, present bool, notes, postedBy string, now time.Time) (*Record, error) {
	if day.After(today) {
		return nil, shared.ErrAttendanceInFuture
	}
	return &Record{
		ID:        id,
		StudentID: studentID,
		Date:      day,
		Present:   present,
		Notes:     strings.TrimSpace(notes),
		PostedBy:  postedBy,
		CreatedAt: now,
	}, nil
}

// Points returns +1 for a presence and -0.5 for an absence.
func (r *Record) Points() float64 {
	if r.Present {
		return PresentPoints
	}
	return AbsentPoints
}

// Flags extracts the present flags in order.
func Flags(records []*Record) []bool {
	out := make([]bool, 0, len(records))
	for _, r := range records {
		out = append(out, r.Present)
	}
	return out
}

// Tally counts present and absent records.
func Tally(records []*Record) (present, absent int) {
	for _, r := range records {
		if r.Present {
			present++
		} else {
			absent++
		}
	}
	return present, absent
}
