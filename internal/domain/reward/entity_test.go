package reward

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

func TestDraw_RedeemOnce(t *testing.T) {
	d := &Draw{ID: "d1", StudentID: "s1", Category: CashSmall, Roll: 95}
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	require.NoError(t, d.Redeem("teacher", now))
	assert.True(t, d.Redeemed)
	assert.Equal(t, "teacher", d.RedeemedBy)
	require.NotNil(t, d.RedeemedAt)
	assert.Equal(t, now, *d.RedeemedAt)

	err := d.Redeem("someone-else", now.Add(time.Hour))
	assert.True(t, errors.Is(err, shared.ErrAlreadyProcessed))
	assert.Equal(t, "teacher", d.RedeemedBy)
	assert.Equal(t, now, *d.RedeemedAt)
}

func TestSummarize(t *testing.T) {
	draws := []*Draw{
		{Category: CommonSnackA},
		{Category: CommonSnackA, Redeemed: true},
		{Category: CashLarge},
	}

	s := Summarize(draws)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Redeemed)
	assert.Equal(t, 2, s.Pending)
	assert.Equal(t, 2, s.ByCategory[CommonSnackA])
	assert.Equal(t, 1, s.ByCategory[CashLarge])
	assert.Zero(t, s.ByCategory[Voucher])
}
