package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id::text, name, email, enrollment, active, created_at, updated_at`

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (id, name, email, enrollment, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		s.Enrollment.String(),
		s.Active,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	s, err := scanStudent(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// Update saves name, email, enrollment and active flag.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			name = $1,
			email = $2,
			enrollment = $3,
			active = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		s.Name,
		s.Email,
		s.Enrollment.String(),
		s.Active,
		s.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		if IsInvalidText(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// Delete removes a student. Grades, attendance, memberships and draws cascade.
// Groups they led lose their leader first, ahead of study_groups_leader_is_member.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE study_groups SET leader_id = NULL, updated_at = NOW() WHERE leader_id = $1`, id,
		); err != nil {
			return err
		}
		result, err := tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return shared.ErrStudentNotFound
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrStudentNotFound), IsInvalidText(err):
		return shared.ErrStudentNotFound
	default:
		return fmt.Errorf("failed to delete student: %w", err)
	}
}

// List returns students ordered by name.
func (r *StudentRepository) List(ctx context.Context, activeOnly bool) ([]*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE active OR NOT $1
		ORDER BY name, id
	`

	rows, err := r.conn.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// GetByIDs returns the students that exist among ids.
func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]*student.Student, error) {
	if len(ids) == 0 {
		return []*student.Student{}, nil
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE id::text = ANY($1)`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query students by ids: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// Count returns the number of active students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM students WHERE active").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var enrollment string

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&enrollment,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Enrollment = student.EnrollmentNumber(enrollment)
	return &s, nil
}

func scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	students := make([]*student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return students, nil
}
