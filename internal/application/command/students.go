package command

import (
	"context"
	"fmt"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand adds a student to the roster.
type RegisterStudentCommand struct {
	Name       string `json:"name" validate:"notblank,max=100"`
	Email      string `json:"email" validate:"omitempty,email,max=254"`
	Enrollment string `json:"enrollment" validate:"notblank,max=20"`
}

// RegisterStudentHandler handles RegisterStudentCommand.
type RegisterStudentHandler struct {
	students student.Repository
	deps     Deps
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(students student.Repository, deps Deps) *RegisterStudentHandler {
	return &RegisterStudentHandler{students: students, deps: deps.withDefaults()}
}

// Handle registers the student. A taken enrollment number is a conflict.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*student.Student, error) {
	if err := validation.Struct("RegisterStudent", cmd); err != nil {
		return nil, err
	}

	s, err := student.NewStudent(newID(), cmd.Name, cmd.Email, student.EnrollmentNumber(cmd.Enrollment), timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.students.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("register_student: %w", err)
	}

	h.deps.Logger.Info("student registered", logger.StudentID(s.ID))
	h.deps.changed(ctx, "student.registered")
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStudentCommand changes roster data. Nil fields are left untouched.
type UpdateStudentCommand struct {
	StudentID  string  `json:"-" validate:"required"`
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Email      *string `json:"email" validate:"omitempty,max=254"`
	Enrollment *string `json:"enrollment" validate:"omitempty,max=20"`
	Active     *bool   `json:"active"`
}

// UpdateStudentHandler handles UpdateStudentCommand.
type UpdateStudentHandler struct {
	students student.Repository
	deps     Deps
}

// NewUpdateStudentHandler creates a new UpdateStudentHandler.
func NewUpdateStudentHandler(students student.Repository, deps Deps) *UpdateStudentHandler {
	return &UpdateStudentHandler{students: students, deps: deps.withDefaults()}
}

// Handle applies the changes.
func (h *UpdateStudentHandler) Handle(ctx context.Context, cmd UpdateStudentCommand) (*student.Student, error) {
	if err := validation.Struct("UpdateStudent", cmd); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	if cmd.Name != nil {
		if err := s.Rename(*cmd.Name, now); err != nil {
			return nil, err
		}
	}
	if cmd.Email != nil {
		s.Email = *cmd.Email
	}
	if cmd.Enrollment != nil {
		s.Enrollment = student.EnrollmentNumber(*cmd.Enrollment)
	}
	if cmd.Active != nil {
		if *cmd.Active {
			s.Activate(now)
		} else {
			s.Deactivate(now)
		}
	}
	s.UpdatedAt = now

	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := h.students.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update_student: %w", err)
	}

	h.deps.changed(ctx, "student.updated")
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand removes a student and everything recorded for them.
type DeleteStudentCommand struct {
	StudentID string `validate:"required"`
}

// DeleteStudentHandler handles DeleteStudentCommand.
type DeleteStudentHandler struct {
	students student.Repository
	deps     Deps
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(students student.Repository, deps Deps) *DeleteStudentHandler {
	return &DeleteStudentHandler{students: students, deps: deps.withDefaults()}
}

// Handle deletes the student with their grades, attendance, memberships and
// draws. Deactivating keeps the records; deleting does not.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) error {
	if err := validation.Struct("DeleteStudent", cmd); err != nil {
		return err
	}

	if err := h.students.Delete(ctx, cmd.StudentID); err != nil {
		return fmt.Errorf("delete_student: %w", err)
	}

	h.deps.Logger.Info("student deleted", logger.StudentID(cmd.StudentID))
	h.deps.changed(ctx, "student.deleted")
	return nil
}
