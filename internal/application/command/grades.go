package command

import (
	"context"
	"fmt"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeCommand posts the first grade of a student for an activity.
type RecordGradeCommand struct {
	ActivityID string  `json:"-" validate:"required"`
	StudentID  string  `json:"student_id" validate:"required"`
	Value      float64 `json:"value" validate:"gte=0,lte=10"`
	Notes      string  `json:"notes" validate:"max=1000"`
	PostedBy   string  `json:"-" validate:"max=100"`
}

// RecordGradeHandler handles RecordGradeCommand.
type RecordGradeHandler struct {
	students   student.Repository
	activities activity.Repository
	grades     activity.GradeRepository
	deps       Deps
}

// NewRecordGradeHandler creates a new RecordGradeHandler.
func NewRecordGradeHandler(
	students student.Repository,
	activities activity.Repository,
	grades activity.GradeRepository,
	deps Deps,
) *RecordGradeHandler {
	return &RecordGradeHandler{
		students:   students,
		activities: activities,
		grades:     grades,
		deps:       deps.withDefaults(),
	}
}

// Handle inserts the grade. A second grade for the same pair is a conflict;
// use UpdateGrade to change it.
func (h *RecordGradeHandler) Handle(ctx context.Context, cmd RecordGradeCommand) (*activity.Grade, error) {
	if err := validation.Struct("RecordGrade", cmd); err != nil {
		return nil, err
	}

	act, err := h.activities.GetByID(ctx, cmd.ActivityID)
	if err != nil {
		return nil, err
	}
	if !act.Active {
		return nil, shared.ErrActivityNotActive
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureActive(); err != nil {
		return nil, err
	}

	g, err := activity.NewGrade(newID(), s.ID, act, shared.Score(cmd.Value), cmd.Notes, cmd.PostedBy, timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.grades.CreateGrade(ctx, g); err != nil {
		return nil, fmt.Errorf("record_grade: %w", err)
	}

	h.deps.Logger.Debug("grade recorded",
		logger.StudentID(s.ID),
		logger.ActivityID(act.ID),
		logger.Float64("value", g.Value.Float64()),
	)
	h.deps.changed(ctx, "grade.recorded")
	return g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE GRADE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateGradeCommand changes an existing grade, identified by its pair.
type UpdateGradeCommand struct {
	ActivityID string  `json:"-" validate:"required"`
	StudentID  string  `json:"-" validate:"required"`
	Value      float64 `json:"value" validate:"gte=0,lte=10"`
	Notes      string  `json:"notes" validate:"max=1000"`
	Reason     string  `json:"reason" validate:"max=200"`
	ChangedBy  string  `json:"-" validate:"max=100"`
}

// UpdateGradeResult reports the saved grade and the history entry, if any.
type UpdateGradeResult struct {
	Grade  *activity.Grade
	Change *activity.GradeChange
}

// UpdateGradeHandler handles UpdateGradeCommand.
type UpdateGradeHandler struct {
	activities activity.Repository
	grades     activity.GradeRepository
	deps       Deps
}

// NewUpdateGradeHandler creates a new UpdateGradeHandler.
func NewUpdateGradeHandler(activities activity.Repository, grades activity.GradeRepository, deps Deps) *UpdateGradeHandler {
	return &UpdateGradeHandler{activities: activities, grades: grades, deps: deps.withDefaults()}
}

// Handle saves the new value. A value change is written to the history in the
// same transaction; a notes-only edit writes no history.
func (h *UpdateGradeHandler) Handle(ctx context.Context, cmd UpdateGradeCommand) (*UpdateGradeResult, error) {
	if err := validation.Struct("UpdateGrade", cmd); err != nil {
		return nil, err
	}

	act, err := h.activities.GetByID(ctx, cmd.ActivityID)
	if err != nil {
		return nil, err
	}

	g, err := h.grades.FindGrade(ctx, cmd.StudentID, cmd.ActivityID)
	if err != nil {
		return nil, err
	}

	change, err := g.Change(act, shared.Score(cmd.Value), cmd.Notes, cmd.Reason, cmd.ChangedBy, newID(), timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.grades.UpdateGrade(ctx, g, change); err != nil {
		return nil, fmt.Errorf("update_grade: %w", err)
	}

	if change != nil {
		h.deps.Logger.Info("grade changed",
			logger.StudentID(g.StudentID),
			logger.ActivityID(g.ActivityID),
			logger.Float64("old_value", change.OldValue.Float64()),
			logger.Float64("new_value", change.NewValue.Float64()),
		)
		h.deps.changed(ctx, "grade.changed")
	} else {
		h.deps.Metrics.Mutation("grade.notes_changed")
	}

	return &UpdateGradeResult{Grade: g, Change: change}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE GRADE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteGradeCommand removes a grade. No history entry is written.
type DeleteGradeCommand struct {
	GradeID string `validate:"required"`
}

// DeleteGradeHandler handles DeleteGradeCommand.
type DeleteGradeHandler struct {
	grades activity.GradeRepository
	deps   Deps
}

// NewDeleteGradeHandler creates a new DeleteGradeHandler.
func NewDeleteGradeHandler(grades activity.GradeRepository, deps Deps) *DeleteGradeHandler {
	return &DeleteGradeHandler{grades: grades, deps: deps.withDefaults()}
}

// Handle deletes the grade.
func (h *DeleteGradeHandler) Handle(ctx context.Context, cmd DeleteGradeCommand) error {
	if err := validation.Struct("DeleteGrade", cmd); err != nil {
		return err
	}

	if err := h.grades.DeleteGrade(ctx, cmd.GradeID); err != nil {
		return fmt.Errorf("delete_grade: %w", err)
	}

	h.deps.changed(ctx, "grade.deleted")
	return nil
}
