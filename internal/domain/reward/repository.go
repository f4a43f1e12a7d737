package reward

import (
	"context"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// Repository stores the append-only draw log.
type Repository interface {
	// RecordDraw appends a new draw and returns it with ID and DrawnAt set.
	RecordDraw(ctx context.Context, studentID string, category Category, roll int) (*Draw, error)

	// GetByID returns ErrDrawNotFound when missing.
	GetByID(ctx context.Context, id string) (*Draw, error)

	// MarkRedeemed persists the redemption fields of a draw that was not yet
	// redeemed. Returns ErrAlreadyRedeemed when another caller got there first.
	MarkRedeemed(ctx context.Context, draw *Draw) error

	// List returns draws newest first with the total count.
	List(ctx context.Context, page shared.Pagination) ([]*Draw, int, error)

	// ListPending returns unredeemed draws newest first.
	ListPending(ctx context.Context) ([]*Draw, error)

	// Stats aggregates the whole log.
	Stats(ctx context.Context) (Stats, error)
}
