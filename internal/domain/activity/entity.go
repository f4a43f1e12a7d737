// Package activity contains graded class activities and the grades students
// receive for them, together with the audit trail of grade changes.
package activity

import (
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// DefaultMaxValue is the maximum grade of an activity unless stated otherwise.
const DefaultMaxValue shared.Score = 10

// DefaultChangeReason is recorded when a grade edit gives no reason.
const DefaultChangeReason = "Changed via system"

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// Activity is a graded task (test, homework, project).
type Activity struct {
	ID          string
	Name        string
	Description string

	// DueDate is optional.
	DueDate *time.Time

	// MaxValue is in (0, 10].
	MaxValue shared.Score

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewActivity builds an active activity. A zero maxValue means DefaultMaxValue.
func NewActivity(id, name, description string, dueDate *time.Time, maxValue shared.Score, now time.Time) (*Activity, error) {
	if maxValue == 0 {
		maxValue = DefaultMaxValue
	}
	a := &Activity{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		DueDate:     dueDate,
		MaxValue:    maxValue,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks entity invariants.
func (a *Activity) Validate() error {
	if a.Name == "" || len(a.Name) > 200 {
		return shared.ErrInvalidActivity
	}
	if a.MaxValue <= 0 || a.MaxValue > shared.MaxScore {
		return shared.ErrInvalidMaxValue
	}
	return nil
}

// Accepts reports whether value is a valid grade for this activity.
func (a *Activity) Accepts(value shared.Score) bool {
	return value.Within(a.MaxValue)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE
// ══════════════════════════════════════════════════════════════════════════════

// Grade is the value a student got for an activity.
// There is at most one grade per (student, activity) pair.
type Grade struct {
	ID         string
	StudentID  string
	ActivityID string
	Value      shared.Score
	Notes      string
	PostedBy   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewGrade validates value against the activity max and builds a grade.
func NewGrade(id, studentID string, act *Activity, value shared.Score, notes, postedBy string, now time.Time) (*Grade, error) {
	value = value.OneDecimal()
	if !act.Accepts(value) {
		return nil, shared.ErrGradeOutOfRange
	}
	return &Grade{
		ID:         id,
		StudentID:  studentID,
		ActivityID: act.ID,
		Value:      value,
		Notes:      strings.TrimSpace(notes),
		PostedBy:   postedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Change applies a new value and notes. When the value differs it returns the
// history entry to persist alongside the update; otherwise it returns nil.
func (g *Grade) Change(act *Activity, value shared.Score, notes, reason, changedBy, changeID string, now time.Time) (*GradeChange, error) {
	value = value.OneDecimal()
	if !act.Accepts(value) {
		return nil, shared.ErrGradeOutOfRange
	}

	var change *GradeChange
	if value != g.Value {
		if strings.TrimSpace(reason) == "" {
			reason = DefaultChangeReason
		}
		change = &GradeChange{
			ID:        changeID,
			GradeID:   g.ID,
			OldValue:  g.Value,
			NewValue:  value,
			Reason:    strings.TrimSpace(reason),
			ChangedBy: changedBy,
			ChangedAt: now,
		}
	}

	g.Value = value
	g.Notes = strings.TrimSpace(notes)
	g.UpdatedAt = now
	return change, nil
}

// GradeChange is an audit entry written whenever a grade value changes.
type GradeChange struct {
	ID        string
	GradeID   string
	OldValue  shared.Score
	NewValue  shared.Score
	Reason    string
	ChangedBy string
	ChangedAt time.Time
}

// Values extracts the grade values in order.
func Values(grades []*Grade) []float64 {
	out := make([]float64, 0, len(grades))
	for _, g := range grades {
		out = append(out, g.Value.Float64())
	}
	return out
}
