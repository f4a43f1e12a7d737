package activity

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores activities.
type Repository interface {
	Create(ctx context.Context, activity *Activity) error

	// GetByID returns ErrActivityNotFound when missing.
	GetByID(ctx context.Context, id string) (*Activity, error)

	Update(ctx context.Context, activity *Activity) error

	// Delete removes the activity and every grade posted for it.
	// Returns ErrActivityNotFound when missing.
	Delete(ctx context.Context, id string) error

	// List returns activities newest first. activeOnly filters inactive ones.
	List(ctx context.Context, activeOnly bool) ([]*Activity, error)

	// CountActive returns the number of active activities.
	CountActive(ctx context.Context) (int, error)
}

// GradeRepository stores grades and their change history.
type GradeRepository interface {
	// CreateGrade inserts if absent.
	// Returns ErrGradeAlreadyExists when the (student, activity) pair is taken.
	CreateGrade(ctx context.Context, grade *Grade) error

	// GetGrade returns ErrGradeNotFound when missing.
	GetGrade(ctx context.Context, id string) (*Grade, error)

	// FindGrade looks a grade up by its (student, activity) pair.
	FindGrade(ctx context.Context, studentID, activityID string) (*Grade, error)

	// UpdateGrade saves the grade and, when change is not nil, appends it to
	// the history atomically.
	UpdateGrade(ctx context.Context, grade *Grade, change *GradeChange) error

	// DeleteGrade removes the grade. No history entry is written.
	DeleteGrade(ctx context.Context, id string) error

	// ListGrades returns every grade of one student.
	ListGrades(ctx context.Context, studentID string) ([]*Grade, error)

	// ListByActivity returns every grade posted for one activity.
	ListByActivity(ctx context.Context, activityID string) ([]*Grade, error)

	// History returns the change log of a grade, newest first.
	History(ctx context.Context, gradeID string) ([]*GradeChange, error)
}
