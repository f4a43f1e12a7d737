package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository implements activity.Repository for PostgreSQL.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

const activityColumns = `id::text, name, description, to_char(due_date, 'YYYY-MM-DD'),
	max_value::float8, active, created_at, updated_at`

// Create creates a new activity.
func (r *ActivityRepository) Create(ctx context.Context, a *activity.Activity) error {
	query := `
		INSERT INTO activities (id, name, description, due_date, max_value, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Description,
		formatOptionalDate(a.DueDate),
		a.MaxValue.Float64(),
		a.Active,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.ErrInvalidMaxValue
		}
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// GetByID returns an activity by ID.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*activity.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	a, err := scanActivity(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// Update saves the mutable fields of an activity.
func (r *ActivityRepository) Update(ctx context.Context, a *activity.Activity) error {
	query := `
		UPDATE activities SET
			name = $1,
			description = $2,
			due_date = $3::date,
			max_value = $4,
			active = $5
		WHERE id = $6
	`

	result, err := r.conn.Exec(ctx, query,
		a.Name,
		a.Description,
		formatOptionalDate(a.DueDate),
		a.MaxValue.Float64(),
		a.Active,
		a.ID,
	)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.ErrInvalidMaxValue
		}
		if IsInvalidText(err) {
			return shared.ErrActivityNotFound
		}
		return fmt.Errorf("failed to update activity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrActivityNotFound
	}

	return nil
}

// Delete removes an activity. Its grades and their history cascade.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrActivityNotFound
		}
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrActivityNotFound
	}
	return nil
}

// List returns activities newest first.
func (r *ActivityRepository) List(ctx context.Context, activeOnly bool) ([]*activity.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE active OR NOT $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.conn.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	activities := make([]*activity.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return activities, nil
}

// CountActive returns the number of active activities.
func (r *ActivityRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM activities WHERE active").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

func scanActivity(row pgx.Row) (*activity.Activity, error) {
	var a activity.Activity
	var dueDate *string
	var maxValue float64

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&dueDate,
		&maxValue,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.MaxValue = shared.Score(maxValue)
	if dueDate != nil {
		day, err := timeutil.ParseDate(*dueDate)
		if err != nil {
			return nil, err
		}
		a.DueDate = &day
	}
	return &a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GradeRepository implements activity.GradeRepository for PostgreSQL.
type GradeRepository struct {
	conn *Connection
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(conn *Connection) *GradeRepository {
	return &GradeRepository{conn: conn}
}

const gradeColumns = `id::text, student_id::text, activity_id::text, value::float8,
	notes, posted_by, created_at, updated_at`

// CreateGrade inserts a grade.
func (r *GradeRepository) CreateGrade(ctx context.Context, g *activity.Grade) error {
	query := `
		INSERT INTO grades (id, student_id, activity_id, value, notes, posted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		g.ID,
		g.StudentID,
		g.ActivityID,
		g.Value.Float64(),
		g.Notes,
		g.PostedBy,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.ErrGradeAlreadyExists
		case IsCheckViolation(err):
			return shared.ErrGradeOutOfRange
		case IsForeignKeyViolation(err):
			return shared.WrapError("grade", "CreateGrade", shared.ErrNotFound, "student or activity not found", err)
		}
		return fmt.Errorf("failed to create grade: %w", err)
	}

	return nil
}

// GetGrade returns a grade by ID.
func (r *GradeRepository) GetGrade(ctx context.Context, id string) (*activity.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// FindGrade returns the grade of a student for an activity.
func (r *GradeRepository) FindGrade(ctx context.Context, studentID, activityID string) (*activity.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = $1 AND activity_id = $2`
	return r.getOne(ctx, query, studentID, activityID)
}

func (r *GradeRepository) getOne(ctx context.Context, query string, args ...any) (*activity.Grade, error) {
	g, err := scanGrade(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrGradeNotFound
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}
	return g, nil
}

// UpdateGrade saves the grade and appends change to its history in one transaction.
func (r *GradeRepository) UpdateGrade(ctx context.Context, g *activity.Grade, change *activity.GradeChange) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE grades SET value = $1, notes = $2 WHERE id = $3`,
			g.Value.Float64(), g.Notes, g.ID,
		)
		if err != nil {
			if IsCheckViolation(err) {
				return shared.ErrGradeOutOfRange
			}
			if IsInvalidText(err) {
				return shared.ErrGradeNotFound
			}
			return fmt.Errorf("failed to update grade: %w", err)
		}
		if result.RowsAffected() == 0 {
			return shared.ErrGradeNotFound
		}

		if change == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO grade_changes (id, grade_id, old_value, new_value, reason, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			change.ID,
			change.GradeID,
			change.OldValue.Float64(),
			change.NewValue.Float64(),
			change.Reason,
			change.ChangedBy,
			change.ChangedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record grade change: %w", err)
		}
		return nil
	})
}

// DeleteGrade removes a grade. Its history goes with it.
func (r *GradeRepository) DeleteGrade(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrGradeNotFound
		}
		return fmt.Errorf("failed to delete grade: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrGradeNotFound
	}
	return nil
}

// ListGrades returns every grade of one student.
func (r *GradeRepository) ListGrades(ctx context.Context, studentID string) ([]*activity.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, studentID)
}

// ListByActivity returns every grade of one activity.
func (r *GradeRepository) ListByActivity(ctx context.Context, activityID string) ([]*activity.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE activity_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, activityID)
}

func (r *GradeRepository) list(ctx context.Context, query string, arg string) ([]*activity.Grade, error) {
	rows, err := r.conn.Query(ctx, query, arg)
	if err != nil {
		if IsInvalidText(err) {
			return []*activity.Grade{}, nil
		}
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	defer rows.Close()

	grades := make([]*activity.Grade, 0)
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		grades = append(grades, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return grades, nil
}

// History returns the change log of a grade, newest first.
func (r *GradeRepository) History(ctx context.Context, gradeID string) ([]*activity.GradeChange, error) {
	query := `
		SELECT id::text, grade_id::text, old_value::float8, new_value::float8, reason, changed_by, changed_at
		FROM grade_changes
		WHERE grade_id = $1
		ORDER BY changed_at DESC, id
	`

	rows, err := r.conn.Query(ctx, query, gradeID)
	if err != nil {
		if IsInvalidText(err) {
			return []*activity.GradeChange{}, nil
		}
		return nil, fmt.Errorf("failed to query grade history: %w", err)
	}
	defer rows.Close()

	changes := make([]*activity.GradeChange, 0)
	for rows.Next() {
		var c activity.GradeChange
		var oldValue, newValue float64
		if err := rows.Scan(&c.ID, &c.GradeID, &oldValue, &newValue, &c.Reason, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grade change: %w", err)
		}
		c.OldValue = shared.Score(oldValue)
		c.NewValue = shared.Score(newValue)
		changes = append(changes, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return changes, nil
}

func scanGrade(row pgx.Row) (*activity.Grade, error) {
	var g activity.Grade
	var value float64

	err := row.Scan(
		&g.ID,
		&g.StudentID,
		&g.ActivityID,
		&value,
		&g.Notes,
		&g.PostedBy,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Value = shared.Score(value)
	return &g, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Date helpers
// ─────────────────────────────────────────────────────────────────────────────

// DATE columns travel as YYYY-MM-DD text so the school timezone never shifts a day.
func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timeutil.FormatDate(*t)
	return &s
}
