package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// fixedRoll always rolls the same number.
type fixedRoll int

func (f fixedRoll) Roll() int { return int(f) }

func TestDrawReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")

	tests := []struct {
		roll int
		want reward.Category
	}{
		{roll: 1, want: reward.CommonSnackA},
		{roll: 50, want: reward.CommonSnackA},
		{roll: 51, want: reward.CommonSnackB},
		{roll: 93, want: reward.Voucher},
		{roll: 98, want: reward.CashSmall},
		{roll: 100, want: reward.CashLarge},
	}

	for _, tt := range tests {
		handler, err := NewDrawRewardHandler(f.store.Students(), f.store.Rewards(), reward.DefaultTable(), fixedRoll(tt.roll), f.deps)
		require.NoError(t, err)

		res, err := handler.Handle(ctx, DrawRewardCommand{StudentID: s.ID})
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Category, "roll %d", tt.roll)
		assert.Equal(t, tt.roll, res.Roll)
		assert.Equal(t, tt.want.Label(), res.Label)
		assert.Equal(t, tt.want.ValueCents(), res.ValueCents)
		assert.Equal(t, fixedNow, res.DrawnAt)
	}

	assert.Len(t, f.metrics.draws, len(tests))

	draws, total, err := f.store.Rewards().List(ctx, shared.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, len(tests), total)
	assert.Equal(t, reward.CashLarge, draws[0].Category)
}

func TestDrawReward_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := NewDrawRewardHandler(f.store.Students(), f.store.Rewards(), reward.Table{}, nil, f.deps)
	assert.ErrorIs(t, err, shared.ErrInvalidRewardTable)

	handler, err := NewDrawRewardHandler(f.store.Students(), f.store.Rewards(), reward.DefaultTable(), nil, f.deps)
	require.NoError(t, err)

	_, err = handler.Handle(ctx, DrawRewardCommand{StudentID: "missing"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	s := f.register(t, "Ana", "001")
	inactive := false
	_, err = NewUpdateStudentHandler(f.store.Students(), f.deps).Handle(ctx, UpdateStudentCommand{StudentID: s.ID, Active: &inactive})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, DrawRewardCommand{StudentID: s.ID})
	assert.ErrorIs(t, err, shared.ErrStudentNotActive)
	assert.Empty(t, f.metrics.draws)
}

func TestRedeemReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")

	draw, err := NewDrawRewardHandler(f.store.Students(), f.store.Rewards(), reward.DefaultTable(), fixedRoll(99), f.deps)
	require.NoError(t, err)
	res, err := draw.Handle(ctx, DrawRewardCommand{StudentID: s.ID})
	require.NoError(t, err)

	handler := NewRedeemRewardHandler(f.store.Rewards(), f.deps)

	d, err := handler.Handle(ctx, RedeemRewardCommand{DrawID: res.DrawID, RedeemedBy: "prof"})
	require.NoError(t, err)
	assert.True(t, d.Redeemed)
	require.NotNil(t, d.RedeemedAt)
	assert.Equal(t, "prof", d.RedeemedBy)
	assert.Equal(t, []string{string(reward.CashLarge)}, f.metrics.redeemed)

	_, err = handler.Handle(ctx, RedeemRewardCommand{DrawID: res.DrawID})
	assert.ErrorIs(t, err, shared.ErrAlreadyRedeemed)

	_, err = handler.Handle(ctx, RedeemRewardCommand{DrawID: "missing"})
	assert.ErrorIs(t, err, shared.ErrDrawNotFound)
}
