package command

import (
	"context"
	"fmt"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DRAW REWARD COMMAND
// Spins the slot machine for one student and appends the outcome to the log.
// ══════════════════════════════════════════════════════════════════════════════

// DrawRewardCommand requests a draw.
type DrawRewardCommand struct {
	StudentID string `json:"student_id" validate:"required"`
}

// DrawRewardResult is what the slot machine shows.
type DrawRewardResult struct {
	DrawID     string          `json:"draw_id"`
	StudentID  string          `json:"student_id"`
	Category   reward.Category `json:"category"`
	Label      string          `json:"label"`
	Tier       reward.Tier     `json:"tier"`
	Roll       int             `json:"roll"`
	ValueCents int64           `json:"value_cents"`
	DrawnAt    time.Time       `json:"drawn_at"`
}

// DrawRewardHandler handles DrawRewardCommand.
type DrawRewardHandler struct {
	students student.Repository
	rewards  reward.Repository
	table    reward.Table
	source   reward.RandomSource
	deps     Deps
}

// NewDrawRewardHandler creates a new DrawRewardHandler. The table is checked
// once here so a bad configuration fails at startup.
func NewDrawRewardHandler(
	students student.Repository,
	rewards reward.Repository,
	table reward.Table,
	source reward.RandomSource,
	deps Deps,
) (*DrawRewardHandler, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = reward.NewMathRandSource(nil)
	}
	return &DrawRewardHandler{
		students: students,
		rewards:  rewards,
		table:    table,
		source:   source,
		deps:     deps.withDefaults(),
	}, nil
}

// Handle draws and records the reward.
func (h *DrawRewardHandler) Handle(ctx context.Context, cmd DrawRewardCommand) (*DrawRewardResult, error) {
	if err := validation.Struct("DrawReward", cmd); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureActive(); err != nil {
		return nil, err
	}

	roll := h.source.Roll()
	category, err := reward.Pick(h.table, roll)
	if err != nil {
		return nil, err
	}

	d, err := h.rewards.RecordDraw(ctx, s.ID, category, roll)
	if err != nil {
		return nil, fmt.Errorf("draw_reward: %w", err)
	}

	h.deps.Metrics.DrawRecorded(string(category))
	h.deps.Logger.Info("reward drawn",
		logger.StudentID(s.ID),
		logger.DrawID(d.ID),
		logger.Category(string(category)),
		logger.Roll(roll),
	)

	return &DrawRewardResult{
		DrawID:     d.ID,
		StudentID:  s.ID,
		Category:   category,
		Label:      category.Label(),
		Tier:       category.Tier(),
		Roll:       roll,
		ValueCents: category.ValueCents(),
		DrawnAt:    d.DrawnAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM REWARD COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RedeemRewardCommand marks a prize as handed over.
type RedeemRewardCommand struct {
	DrawID     string `json:"-" validate:"required"`
	RedeemedBy string `json:"-" validate:"max=100"`
}

// RedeemRewardHandler handles RedeemRewardCommand.
type RedeemRewardHandler struct {
	rewards reward.Repository
	deps    Deps
}

// NewRedeemRewardHandler creates a new RedeemRewardHandler.
func NewRedeemRewardHandler(rewards reward.Repository, deps Deps) *RedeemRewardHandler {
	return &RedeemRewardHandler{rewards: rewards, deps: deps.withDefaults()}
}

// Handle redeems the draw once. A second redemption fails with ErrAlreadyRedeemed.
func (h *RedeemRewardHandler) Handle(ctx context.Context, cmd RedeemRewardCommand) (*reward.Draw, error) {
	if err := validation.Struct("RedeemReward", cmd); err != nil {
		return nil, err
	}

	d, err := h.rewards.GetByID(ctx, cmd.DrawID)
	if err != nil {
		return nil, err
	}

	if err := d.Redeem(cmd.RedeemedBy, timeutil.Now()); err != nil {
		return nil, err
	}
	if err := h.rewards.MarkRedeemed(ctx, d); err != nil {
		return nil, fmt.Errorf("redeem_reward: %w", err)
	}

	h.deps.Metrics.RewardRedeemed(string(d.Category))
	h.deps.Logger.Info("reward redeemed", logger.DrawID(d.ID), logger.Category(string(d.Category)))
	return d, nil
}
