package reward

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

func TestDraw_Boundaries(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		roll int
		want Category
	}{
		{1, CommonSnackA},
		{50, CommonSnackA},
		{51, CommonSnackB},
		{85, CommonSnackB},
		{86, Voucher},
		{93, Voucher},
		{94, CashSmall},
		{98, CashSmall},
		{99, CashLarge},
		{100, CashLarge},
	}

	for _, tt := range tests {
		got, err := Pick(table, tt.roll)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "roll %d", tt.roll)
	}
}

func TestDraw_OutOfRangeFallsBackToLast(t *testing.T) {
	table := DefaultTable()

	for _, roll := range []int{0, -7, 101, 1000} {
		got, err := Pick(table, roll)
		require.NoError(t, err)
		assert.Equal(t, CashLarge, got, "roll %d", roll)
	}
}

func TestDraw_ShortTableFallsBackToLast(t *testing.T) {
	table := Table{{Category: Voucher, Weight: 10}, {Category: CashSmall, Weight: 10}}

	got, err := Pick(table, 10)
	require.NoError(t, err)
	assert.Equal(t, Voucher, got)

	got, err = Pick(table, 21)
	require.NoError(t, err)
	assert.Equal(t, CashSmall, got)
}

func TestDraw_DeclaredOrderIsKept(t *testing.T) {
	// Smallest weight first: order decides, not size.
	table := Table{{Category: CashLarge, Weight: 2}, {Category: CommonSnackA, Weight: 98}}

	got, err := Pick(table, 2)
	require.NoError(t, err)
	assert.Equal(t, CashLarge, got)

	got, err = Pick(table, 3)
	require.NoError(t, err)
	assert.Equal(t, CommonSnackA, got)
}

func TestDraw_ZeroWeightIsSkipped(t *testing.T) {
	table := Table{{Category: Voucher, Weight: 0}, {Category: CashSmall, Weight: 100}}

	got, err := Pick(table, 1)
	require.NoError(t, err)
	assert.Equal(t, CashSmall, got)
}

func TestDraw_ConfigurationErrors(t *testing.T) {
	for name, table := range map[string]Table{
		"empty":    {},
		"nil":      nil,
		"all zero": {{Category: Voucher, Weight: 0}, {Category: CashSmall, Weight: 0}},
		"negative": {{Category: Voucher, Weight: -5}},
	} {
		_, err := Pick(table, 50)
		assert.Error(t, err, name)
		assert.True(t, errors.Is(err, shared.ErrInvalidConfiguration), name)
	}
}

func TestDraw_Deterministic(t *testing.T) {
	table := DefaultTable()
	for r := MinRoll; r <= MaxRoll; r++ {
		a, _ := Pick(table, r)
		b, _ := Pick(table, r)
		assert.Equal(t, a, b)
	}
}

func TestDraw_Distribution(t *testing.T) {
	table := DefaultTable()
	counts := make(map[Category]int)
	for r := MinRoll; r <= MaxRoll; r++ {
		c, err := Pick(table, r)
		require.NoError(t, err)
		counts[c]++
	}

	for _, w := range table {
		assert.Equal(t, w.Weight, counts[w.Category], string(w.Category))
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, 100, table.Total())
	assert.NoError(t, table.Validate())

	cats := make([]Category, 0, len(table))
	for _, w := range table {
		cats = append(cats, w.Category)
	}
	assert.Equal(t, Categories(), cats)
}

func TestCategory_Presentation(t *testing.T) {
	assert.Equal(t, int64(1000), CashLarge.ValueCents())
	assert.Equal(t, int64(500), CashSmall.ValueCents())
	assert.Equal(t, int64(0), Voucher.ValueCents())
	assert.Equal(t, TierGold, CashLarge.Tier())
	assert.Equal(t, TierCommon, CommonSnackB.Tier())
	assert.True(t, CommonSnackA.IsSnack())
	assert.False(t, Voucher.IsSnack())
	assert.False(t, Category("jackpot").IsValid())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("voucher")
	require.NoError(t, err)
	assert.Equal(t, Voucher, c)

	_, err = ParseCategory("jackpot")
	assert.True(t, shared.IsValidation(err))
}

func TestMathRandSource_InRange(t *testing.T) {
	src := NewMathRandSource(rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 1000; i++ {
		r := src.Roll()
		assert.GreaterOrEqual(t, r, MinRoll)
		assert.LessOrEqual(t, r, MaxRoll)
	}

	global := NewMathRandSource(nil)
	r := global.Roll()
	assert.True(t, r >= MinRoll && r <= MaxRoll)
}
