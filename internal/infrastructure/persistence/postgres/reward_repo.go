package postgres

import (
	"context"
	"fmt"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RewardRepository implements reward.Repository for PostgreSQL.
type RewardRepository struct {
	conn *Connection
}

// NewRewardRepository creates a new RewardRepository.
func NewRewardRepository(conn *Connection) *RewardRepository {
	return &RewardRepository{conn: conn}
}

const drawColumns = `id::text, student_id::text, category, roll, drawn_at,
	redeemed, redeemed_at, redeemed_by`

// RecordDraw appends a draw and lets the database assign ID and timestamp.
func (r *RewardRepository) RecordDraw(ctx context.Context, studentID string, category reward.Category, roll int) (*reward.Draw, error) {
	query := `
		INSERT INTO reward_draws (student_id, category, roll)
		VALUES ($1, $2, $3)
		RETURNING ` + drawColumns

	d, err := scanDraw(r.conn.QueryRow(ctx, query, studentID, string(category), roll))
	if err != nil {
		switch {
		case IsForeignKeyViolation(err), IsInvalidText(err):
			return nil, shared.ErrStudentNotFound
		case IsCheckViolation(err):
			return nil, shared.ErrUnknownCategory
		}
		return nil, fmt.Errorf("failed to record draw: %w", err)
	}
	return d, nil
}

// GetByID returns a draw by ID.
func (r *RewardRepository) GetByID(ctx context.Context, id string) (*reward.Draw, error) {
	query := `SELECT ` + drawColumns + ` FROM reward_draws WHERE id = $1`

	d, err := scanDraw(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrDrawNotFound
		}
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	return d, nil
}

// MarkRedeemed flips the redemption flag only if it is still unset.
func (r *RewardRepository) MarkRedeemed(ctx context.Context, d *reward.Draw) error {
	query := `
		UPDATE reward_draws SET
			redeemed = TRUE,
			redeemed_at = $1,
			redeemed_by = $2
		WHERE id = $3 AND NOT redeemed
	`

	result, err := r.conn.Exec(ctx, query, d.RedeemedAt, d.RedeemedBy, d.ID)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrDrawNotFound
		}
		return fmt.Errorf("failed to redeem draw: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Either the draw is gone or someone redeemed it first.
	if _, err := r.GetByID(ctx, d.ID); err != nil {
		return err
	}
	return shared.ErrAlreadyRedeemed
}

// List returns a page of draws newest first with the total count.
func (r *RewardRepository) List(ctx context.Context, page shared.Pagination) ([]*reward.Draw, int, error) {
	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM reward_draws`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count draws: %w", err)
	}

	query := `
		SELECT ` + drawColumns + `
		FROM reward_draws
		ORDER BY drawn_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn.Query(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list draws: %w", err)
	}
	defer rows.Close()

	draws, err := scanDraws(rows)
	if err != nil {
		return nil, 0, err
	}
	return draws, total, nil
}

// ListPending returns unredeemed draws newest first.
func (r *RewardRepository) ListPending(ctx context.Context) ([]*reward.Draw, error) {
	query := `
		SELECT ` + drawColumns + `
		FROM reward_draws
		WHERE NOT redeemed
		ORDER BY drawn_at DESC, id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending draws: %w", err)
	}
	defer rows.Close()

	return scanDraws(rows)
}

// Stats aggregates the draw log by category.
func (r *RewardRepository) Stats(ctx context.Context) (reward.Stats, error) {
	query := `
		SELECT category, COUNT(*), COUNT(*) FILTER (WHERE redeemed)
		FROM reward_draws
		GROUP BY category
	`

	stats := reward.Stats{ByCategory: make(map[reward.Category]int)}

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate draws: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count, redeemed int
		if err := rows.Scan(&category, &count, &redeemed); err != nil {
			return stats, fmt.Errorf("failed to scan draw stats: %w", err)
		}
		stats.ByCategory[reward.Category(category)] = count
		stats.Total += count
		stats.Redeemed += redeemed
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("rows iteration error: %w", err)
	}

	stats.Pending = stats.Total - stats.Redeemed
	return stats, nil
}

func scanDraw(row pgx.Row) (*reward.Draw, error) {
	var d reward.Draw
	var category string
	var roll int16

	err := row.Scan(
		&d.ID,
		&d.StudentID,
		&category,
		&roll,
		&d.DrawnAt,
		&d.Redeemed,
		&d.RedeemedAt,
		&d.RedeemedBy,
	)
	if err != nil {
		return nil, err
	}

	d.Category = reward.Category(category)
	d.Roll = int(roll)
	return &d, nil
}

func scanDraws(rows pgx.Rows) ([]*reward.Draw, error) {
	draws := make([]*reward.Draw, 0)
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return draws, nil
}
