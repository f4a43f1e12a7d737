package group

import (
	"context"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

// Repository stores groups and memberships.
type Repository interface {
	Create(ctx context.Context, group *Group) error

	// GetByID returns ErrGroupNotFound when missing.
	GetByID(ctx context.Context, id string) (*Group, error)

	// Update returns ErrLeaderNotMember when the leader is not a member.
	Update(ctx context.Context, group *Group) error

	// Delete removes the group and its memberships.
	Delete(ctx context.Context, id string) error

	// List returns groups ordered by name. activeOnly filters inactive ones.
	List(ctx context.Context, activeOnly bool) ([]*Group, error)

	// AddMember inserts if absent and reports whether a row was created.
	AddMember(ctx context.Context, m Membership) (bool, error)

	// RemoveMember deletes the membership and, in the same write, clears the
	// leader when it was that student. It reports whether the leader was
	// cleared and returns ErrMembershipNotFound when the student is not a member.
	RemoveMember(ctx context.Context, groupID, studentID string, at time.Time) (leaderCleared bool, err error)

	// ListGroupMembers returns the members of a group ordered by name.
	ListGroupMembers(ctx context.Context, groupID string) ([]*student.Student, error)
}
