package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements attendance.Repository for PostgreSQL.
type AttendanceRepository struct {
	conn *Connection
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

const attendanceColumns = `id::text, student_id::text, to_char(day, 'YYYY-MM-DD'),
	present, notes, posted_by, created_at`

// Create inserts a record.
func (r *AttendanceRepository) Create(ctx context.Context, rec *attendance.Record) error {
	query := `
		INSERT INTO attendance (id, student_id, day, present, notes, posted_by, created_at)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		rec.ID,
		rec.StudentID,
		timeutil.FormatDate(rec.Date),
		rec.Present,
		rec.Notes,
		rec.PostedBy,
		rec.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAttendanceAlreadyExists
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create attendance: %w", err)
	}

	return nil
}

// GetByID returns a record by ID.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*attendance.Record, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`

	rec, err := scanAttendance(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) || IsInvalidText(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return rec, nil
}

// Update saves date, presence and notes.
func (r *AttendanceRepository) Update(ctx context.Context, rec *attendance.Record) error {
	query := `
		UPDATE attendance SET
			day = $1::date,
			present = $2,
			notes = $3
		WHERE id = $4
	`

	result, err := r.conn.Exec(ctx, query,
		timeutil.FormatDate(rec.Date),
		rec.Present,
		rec.Notes,
		rec.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAttendanceAlreadyExists
		}
		if IsInvalidText(err) {
			return shared.ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to update attendance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrAttendanceNotFound
	}

	return nil
}

// Delete removes a record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		if IsInvalidText(err) {
			return shared.ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrAttendanceNotFound
	}
	return nil
}

// ListAttendance returns every record of one student, newest day first.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, studentID string) ([]*attendance.Record, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE student_id = $1 ORDER BY day DESC`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		if IsInvalidText(err) {
			return []*attendance.Record{}, nil
		}
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	return scanAttendanceRows(rows)
}

// ListRange returns records with from <= day <= to, newest day first.
func (r *AttendanceRepository) ListRange(ctx context.Context, from, to time.Time) ([]*attendance.Record, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE day BETWEEN $1::date AND $2::date
		ORDER BY day DESC, student_id
	`

	rows, err := r.conn.Query(ctx, query, timeutil.FormatDate(from), timeutil.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance range: %w", err)
	}
	defer rows.Close()

	return scanAttendanceRows(rows)
}

// CountPresent returns the number of presence records.
func (r *AttendanceRepository) CountPresent(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM attendance WHERE present").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return count, nil
}

func scanAttendance(row pgx.Row) (*attendance.Record, error) {
	var rec attendance.Record
	var day string

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&day,
		&rec.Present,
		&rec.Notes,
		&rec.PostedBy,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Date, err = timeutil.ParseDate(day)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanAttendanceRows(rows pgx.Rows) ([]*attendance.Record, error) {
	records := make([]*attendance.Record, 0)
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}
