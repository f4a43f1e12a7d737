package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ErrMaxBelowGrades is returned when lowering an activity max under grades already posted.
var ErrMaxBelowGrades = shared.NewDomainError("activity", "Update", shared.ErrValueOutOfRange,
	"existing grades exceed the new max value")

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ACTIVITY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateActivityCommand adds a graded activity. MaxValue 0 means 10.
type CreateActivityCommand struct {
	Name        string  `json:"name" validate:"notblank,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	DueDate     string  `json:"due_date" validate:"omitempty,date"`
	MaxValue    float64 `json:"max_value" validate:"gte=0,lte=10"`
}

// CreateActivityHandler handles CreateActivityCommand.
type CreateActivityHandler struct {
	activities activity.Repository
	deps       Deps
}

// NewCreateActivityHandler creates a new CreateActivityHandler.
func NewCreateActivityHandler(activities activity.Repository, deps Deps) *CreateActivityHandler {
	return &CreateActivityHandler{activities: activities, deps: deps.withDefaults()}
}

// Handle creates the activity.
func (h *CreateActivityHandler) Handle(ctx context.Context, cmd CreateActivityCommand) (*activity.Activity, error) {
	if err := validation.Struct("CreateActivity", cmd); err != nil {
		return nil, err
	}

	due, err := parseOptionalDate(cmd.DueDate)
	if err != nil {
		return nil, err
	}

	a, err := activity.NewActivity(newID(), cmd.Name, cmd.Description, due, shared.Score(cmd.MaxValue), timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.activities.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create_activity: %w", err)
	}

	h.deps.Logger.Info("activity created", logger.ActivityID(a.ID))
	h.deps.Metrics.Mutation("activity.created")
	return a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ACTIVITY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateActivityCommand changes an activity. Nil fields are left untouched;
// an empty DueDate clears it.
type UpdateActivityCommand struct {
	ActivityID  string   `json:"-" validate:"required"`
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	DueDate     *string  `json:"due_date" validate:"omitempty"`
	MaxValue    *float64 `json:"max_value" validate:"omitempty,gt=0,lte=10"`
	Active      *bool    `json:"active"`
}

// UpdateActivityHandler handles UpdateActivityCommand.
type UpdateActivityHandler struct {
	activities activity.Repository
	grades     activity.GradeRepository
	deps       Deps
}

// NewUpdateActivityHandler creates a new UpdateActivityHandler.
func NewUpdateActivityHandler(activities activity.Repository, grades activity.GradeRepository, deps Deps) *UpdateActivityHandler {
	return &UpdateActivityHandler{activities: activities, grades: grades, deps: deps.withDefaults()}
}

// Handle applies the changes. The max value cannot drop below a posted grade.
func (h *UpdateActivityHandler) Handle(ctx context.Context, cmd UpdateActivityCommand) (*activity.Activity, error) {
	if err := validation.Struct("UpdateActivity", cmd); err != nil {
		return nil, err
	}

	a, err := h.activities.GetByID(ctx, cmd.ActivityID)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		a.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Description != nil {
		a.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.DueDate != nil {
		if a.DueDate, err = parseOptionalDate(*cmd.DueDate); err != nil {
			return nil, err
		}
	}
	if cmd.Active != nil {
		a.Active = *cmd.Active
	}
	if cmd.MaxValue != nil {
		newMax := shared.Score(*cmd.MaxValue).OneDecimal()
		if newMax < a.MaxValue {
			grades, err := h.grades.ListByActivity(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			for _, g := range grades {
				if g.Value > newMax {
					return nil, ErrMaxBelowGrades
				}
			}
		}
		a.MaxValue = newMax
	}
	a.UpdatedAt = timeutil.Now()

	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := h.activities.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update_activity: %w", err)
	}

	// Deactivating an activity does not touch grades, so standings stay valid.
	h.deps.Metrics.Mutation("activity.updated")
	return a, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	day, err := timeutil.ParseDate(value)
	if err != nil {
		return nil, shared.WrapError("command", "ParseDate", shared.ErrInvalidFormat, "date must be YYYY-MM-DD", err)
	}
	return &day, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE ACTIVITY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteActivityCommand removes an activity and its grades.
type DeleteActivityCommand struct {
	ActivityID string `validate:"required"`
}

// DeleteActivityHandler handles DeleteActivityCommand.
type DeleteActivityHandler struct {
	activities activity.Repository
	deps       Deps
}

// NewDeleteActivityHandler creates a new DeleteActivityHandler.
func NewDeleteActivityHandler(activities activity.Repository, deps Deps) *DeleteActivityHandler {
	return &DeleteActivityHandler{activities: activities, deps: deps.withDefaults()}
}

// Handle deletes the activity. Every grade posted for it goes with it.
func (h *DeleteActivityHandler) Handle(ctx context.Context, cmd DeleteActivityCommand) error {
	if err := validation.Struct("DeleteActivity", cmd); err != nil {
		return err
	}

	if err := h.activities.Delete(ctx, cmd.ActivityID); err != nil {
		return fmt.Errorf("delete_activity: %w", err)
	}

	h.deps.Logger.Info("activity deleted", logger.ActivityID(cmd.ActivityID))
	h.deps.changed(ctx, "activity.deleted")
	return nil
}
