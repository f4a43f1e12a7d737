package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ATTENDANCE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendanceCommand marks one student for one day. Present defaults to true.
type RecordAttendanceCommand struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,date"`
	Present   *bool  `json:"present"`
	Notes     string `json:"notes" validate:"max=200"`
	PostedBy  string `json:"-" validate:"max=100"`
}

// RecordAttendanceHandler handles RecordAttendanceCommand.
type RecordAttendanceHandler struct {
	students   student.Repository
	attendance attendance.Repository
	deps       Deps
}

// NewRecordAttendanceHandler creates a new RecordAttendanceHandler.
func NewRecordAttendanceHandler(students student.Repository, records attendance.Repository, deps Deps) *RecordAttendanceHandler {
	return &RecordAttendanceHandler{students: students, attendance: records, deps: deps.withDefaults()}
}

// Handle inserts the record. Future days and duplicate (student, date) pairs fail.
func (h *RecordAttendanceHandler) Handle(ctx context.Context, cmd RecordAttendanceCommand) (*attendance.Record, error) {
	if err := validation.Struct("RecordAttendance", cmd); err != nil {
		return nil, err
	}

	day, err := timeutil.ParseDate(cmd.Date)
	if err != nil {
		return nil, shared.WrapError("attendance", "RecordAttendance", shared.ErrInvalidFormat, "date must be YYYY-MM-DD", err)
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureActive(); err != nil {
		return nil, err
	}

	present := cmd.Present == nil || *cmd.Present
	rec, err := attendance.NewRecord(newID(), s.ID, day, timeutil.Today(), present, cmd.Notes, cmd.PostedBy, timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.attendance.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record_attendance: %w", err)
	}

	h.deps.changed(ctx, "attendance.recorded")
	return rec, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD BULK ATTENDANCE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordBulkAttendanceCommand marks several students present on one day.
type RecordBulkAttendanceCommand struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,max=500,dive,required"`
	Date       string   `json:"date" validate:"required,date"`
	PostedBy   string   `json:"-" validate:"max=100"`
}

// BulkAttendanceResult reports what happened to each requested student.
type BulkAttendanceResult struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped"`
}

// RecordBulkAttendanceHandler handles RecordBulkAttendanceCommand.
type RecordBulkAttendanceHandler struct {
	students   student.Repository
	attendance attendance.Repository
	deps       Deps
}

// NewRecordBulkAttendanceHandler creates a new RecordBulkAttendanceHandler.
func NewRecordBulkAttendanceHandler(students student.Repository, records attendance.Repository, deps Deps) *RecordBulkAttendanceHandler {
	return &RecordBulkAttendanceHandler{students: students, attendance: records, deps: deps.withDefaults()}
}

// Handle creates a presence record per student. Unknown or inactive students and
// pairs already recorded are skipped, not failed.
func (h *RecordBulkAttendanceHandler) Handle(ctx context.Context, cmd RecordBulkAttendanceCommand) (*BulkAttendanceResult, error) {
	if err := validation.Struct("RecordBulkAttendance", cmd); err != nil {
		return nil, err
	}

	day, err := timeutil.ParseDate(cmd.Date)
	if err != nil {
		return nil, shared.WrapError("attendance", "RecordBulkAttendance", shared.ErrInvalidFormat, "date must be YYYY-MM-DD", err)
	}
	today := timeutil.Today()
	if day.After(today) {
		return nil, shared.ErrAttendanceInFuture
	}

	found, err := h.students.GetByIDs(ctx, cmd.StudentIDs)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(found))
	for _, s := range found {
		active[s.ID] = s.Active
	}

	result := &BulkAttendanceResult{Skipped: []string{}}
	seen := make(map[string]bool, len(cmd.StudentIDs))
	now := timeutil.Now()

	for _, id := range cmd.StudentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		if !active[id] {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		rec, err := attendance.NewRecord(newID(), id, day, today, true, "", cmd.PostedBy, now)
		if err != nil {
			return nil, err
		}
		if err := h.attendance.Create(ctx, rec); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			return nil, fmt.Errorf("record_bulk_attendance: %w", err)
		}
		result.Created++
	}

	h.deps.Logger.Info("bulk attendance recorded",
		logger.String("date", timeutil.FormatDate(day)),
		logger.Count(result.Created),
		logger.Int("skipped", len(result.Skipped)),
	)
	if result.Created > 0 {
		h.deps.changed(ctx, "attendance.bulk_recorded")
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE / DELETE ATTENDANCE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateAttendanceCommand edits a record. Nil fields are left untouched.
type UpdateAttendanceCommand struct {
	RecordID string  `json:"-" validate:"required"`
	Date     *string `json:"date" validate:"omitempty,date"`
	Present  *bool   `json:"present"`
	Notes    *string `json:"notes" validate:"omitempty,max=200"`
}

// UpdateAttendanceHandler handles UpdateAttendanceCommand.
type UpdateAttendanceHandler struct {
	attendance attendance.Repository
	deps       Deps
}

// NewUpdateAttendanceHandler creates a new UpdateAttendanceHandler.
func NewUpdateAttendanceHandler(records attendance.Repository, deps Deps) *UpdateAttendanceHandler {
	return &UpdateAttendanceHandler{attendance: records, deps: deps.withDefaults()}
}

// Handle applies the changes. Moving a record to a future day or onto a day
// already recorded fails.
func (h *UpdateAttendanceHandler) Handle(ctx context.Context, cmd UpdateAttendanceCommand) (*attendance.Record, error) {
	if err := validation.Struct("UpdateAttendance", cmd); err != nil {
		return nil, err
	}

	rec, err := h.attendance.GetByID(ctx, cmd.RecordID)
	if err != nil {
		return nil, err
	}

	if cmd.Date != nil {
		var day time.Time
		if day, err = timeutil.ParseDate(*cmd.Date); err != nil {
			return nil, shared.WrapError("attendance", "UpdateAttendance", shared.ErrInvalidFormat, "date must be YYYY-MM-DD", err)
		}
		if day.After(timeutil.Today()) {
			return nil, shared.ErrAttendanceInFuture
		}
		rec.Date = day
	}
	if cmd.Present != nil {
		rec.Present = *cmd.Present
	}
	if cmd.Notes != nil {
		rec.Notes = strings.TrimSpace(*cmd.Notes)
	}

	if err := h.attendance.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update_attendance: %w", err)
	}

	h.deps.changed(ctx, "attendance.updated")
	return rec, nil
}

// DeleteAttendanceCommand removes a record.
type DeleteAttendanceCommand struct {
	RecordID string `validate:"required"`
}

// DeleteAttendanceHandler handles DeleteAttendanceCommand.
type DeleteAttendanceHandler struct {
	attendance attendance.Repository
	deps       Deps
}

// NewDeleteAttendanceHandler creates a new DeleteAttendanceHandler.
func NewDeleteAttendanceHandler(records attendance.Repository, deps Deps) *DeleteAttendanceHandler {
	return &DeleteAttendanceHandler{attendance: records, deps: deps.withDefaults()}
}

// Handle deletes the record.
func (h *DeleteAttendanceHandler) Handle(ctx context.Context, cmd DeleteAttendanceCommand) error {
	if err := validation.Struct("DeleteAttendance", cmd); err != nil {
		return err
	}

	if err := h.attendance.Delete(ctx, cmd.RecordID); err != nil {
		return fmt.Errorf("delete_attendance: %w", err)
	}

	h.deps.changed(ctx, "attendance.deleted")
	return nil
}
