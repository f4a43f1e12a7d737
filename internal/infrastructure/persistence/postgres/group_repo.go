package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GroupRepository implements group.Repository for PostgreSQL.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

const groupColumns = `id::text, name, description, COALESCE(leader_id::text, ''),
	active, created_by, created_at, updated_at`

// Create creates a new group.
func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	query := `
		INSERT INTO study_groups (id, name, description, leader_id, active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		g.ID,
		g.Name,
		g.Description,
		g.LeaderID,
		g.Active,
		g.CreatedBy,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrGroupAlreadyExists
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByID returns a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*group.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM study_groups WHERE id = $1`

	g, err := scanGroup(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// Update saves the mutable fields of a group. The leader must be a member
// when the row is written.
func (r *GroupRepository) Update(ctx context.Context, g *group.Group) error {
	query := `
		UPDATE study_groups SET
			name = $1,
			description = $2,
			leader_id = NULLIF($3, '')::uuid,
			active = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		g.Name,
		g.Description,
		g.LeaderID,
		g.Active,
		g.ID,
	)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrGroupNotFound
		}
		// study_groups_leader_is_member
		if IsForeignKeyViolation(err) {
			return shared.ErrLeaderNotMember
		}
		return fmt.Errorf("failed to update group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrGroupNotFound
	}

	return nil
}

// List returns groups ordered by name.
func (r *GroupRepository) List(ctx context.Context, activeOnly bool) ([]*group.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM study_groups
		WHERE active OR NOT $1
		ORDER BY name, id
	`

	rows, err := r.conn.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*group.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return groups, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Membership
// ─────────────────────────────────────────────────────────────────────────────

// AddMember inserts the membership unless it already exists.
func (r *GroupRepository) AddMember(ctx context.Context, m group.Membership) (bool, error) {
	query := `
		INSERT INTO group_members (group_id, student_id, added_by, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, student_id) DO NOTHING
	`

	result, err := r.conn.Exec(ctx, query, m.GroupID, m.StudentID, m.AddedBy, m.AddedAt)
	if err != nil {
		if IsForeignKeyViolation(err) || IsInvalidText(err) {
			return false, shared.WrapError("group", "AddMember", shared.ErrNotFound, "group or student not found", err)
		}
		return false, fmt.Errorf("failed to add group member: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// RemoveMember deletes a membership and clears the leader in one transaction.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, studentID string, at time.Time) (bool, error) {
	var cleared bool
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE study_groups SET leader_id = NULL, updated_at = $3 WHERE id = $1 AND leader_id = $2`,
			groupID, studentID, at,
		)
		if err != nil {
			return err
		}
		cleared = result.RowsAffected() == 1

		result, err = tx.Exec(ctx,
			`DELETE FROM group_members WHERE group_id = $1 AND student_id = $2`,
			groupID, studentID,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return shared.ErrMembershipNotFound
		}
		return nil
	})
	switch {
	case err == nil:
		return cleared, nil
	case errors.Is(err, shared.ErrMembershipNotFound), IsInvalidText(err):
		return false, shared.ErrMembershipNotFound
	default:
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
}

// Delete removes a group. Memberships cascade.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM study_groups WHERE id = $1`, id)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrGroupNotFound
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrGroupNotFound
	}
	return nil
}

// ListGroupMembers returns the members of a group ordered by name.
func (r *GroupRepository) ListGroupMembers(ctx context.Context, groupID string) ([]*student.Student, error) {
	query := `
		SELECT s.id::text, s.name, s.email, s.enrollment, s.active, s.created_at, s.updated_at
		FROM group_members gm
		JOIN students s ON s.id = gm.student_id
		WHERE gm.group_id = $1
		ORDER BY s.name, s.id
	`

	rows, err := r.conn.Query(ctx, query, groupID)
	if err != nil {
		if IsInvalidText(err) {
			return []*student.Student{}, nil
		}
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

func scanGroup(row pgx.Row) (*group.Group, error) {
	var g group.Group

	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.LeaderID,
		&g.Active,
		&g.CreatedBy,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &g, nil
}
