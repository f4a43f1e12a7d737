package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for the roster.
type Repository interface {
	// Create stores a new student.
	// Returns ErrStudentAlreadyExists when the enrollment number is taken.
	Create(ctx context.Context, student *Student) error

	// GetByID returns ErrStudentNotFound when the student does not exist.
	GetByID(ctx context.Context, id string) (*Student, error)

	// Update saves changes to an existing student.
	Update(ctx context.Context, student *Student) error

	// Delete removes the student with their grades, attendance, memberships
	// and draws. Groups they led lose their leader.
	// Returns ErrStudentNotFound when the student does not exist.
	Delete(ctx context.Context, id string) error

	// List returns students ordered by name. activeOnly filters inactive ones.
	List(ctx context.Context, activeOnly bool) ([]*Student, error)

	// GetByIDs returns the students that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]*Student, error)

	// Count returns the number of active students.
	Count(ctx context.Context) (int, error)
}
