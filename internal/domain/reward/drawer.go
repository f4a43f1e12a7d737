// Package reward implements the slot-machine reward mechanic: a weighted
// table of prize categories, the draw over it and the record of each draw.
package reward

import (
	"fmt"
	"math/rand/v2"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORIES
// ══════════════════════════════════════════════════════════════════════════════

// Category is one of the fixed prize kinds.
type Category string

const (
	CommonSnackA Category = "common_snack_a"
	CommonSnackB Category = "common_snack_b"
	Voucher      Category = "voucher"
	CashSmall    Category = "cash_small"
	CashLarge    Category = "cash_large"
)

// Tier is the presentation class of a prize.
type Tier string

const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
	TierCommon Tier = "common"
)

type categoryInfo struct {
	label      string
	tier       Tier
	valueCents int64
}

var categories = map[Category]categoryInfo{
	CommonSnackA: {label: "Savory snack", tier: TierCommon, valueCents: 300},
	CommonSnackB: {label: "Sweet", tier: TierCommon, valueCents: 200},
	Voucher:      {label: "Work voucher", tier: TierBronze, valueCents: 0},
	CashSmall:    {label: "R$ 5,00", tier: TierSilver, valueCents: 500},
	CashLarge:    {label: "R$ 10,00", tier: TierGold, valueCents: 1000},
}

// Categories returns the closed set of categories in table order.
func Categories() []Category {
	return []Category{CommonSnackA, CommonSnackB, Voucher, CashSmall, CashLarge}
}

// IsValid reports whether c belongs to the closed category set.
func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// Label returns the human-readable prize name.
func (c Category) Label() string {
	return categories[c].label
}

// Tier returns the presentation class.
func (c Category) Tier() Tier {
	return categories[c].tier
}

// ValueCents is the monetary value of the prize in cents. Derived, never stored.
func (c Category) ValueCents() int64 {
	return categories[c].valueCents
}

// IsSnack reports whether the category is one of the common snacks.
func (c Category) IsSnack() bool {
	return c == CommonSnackA || c == CommonSnackB
}

// ParseCategory validates a raw category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", shared.WrapError("reward", "ParseCategory", shared.ErrInvalidInput,
			fmt.Sprintf("unknown reward category %q", s), shared.ErrUnknownCategory)
	}
	return c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHT TABLE AND DRAW
// ══════════════════════════════════════════════════════════════════════════════

// Weight pairs a category with its integer chance.
type Weight struct {
	Category Category
	Weight   int
}

// Table is an ordered weight table. Order is significant and never re-sorted.
type Table []Weight

// MinRoll and MaxRoll bound the uniform sample.
const (
	MinRoll = 1
	MaxRoll = 100
)

// DefaultTable returns the classroom prize table.
func DefaultTable() Table {
	return Table{
		{Category: CommonSnackA, Weight: 50},
		{Category: CommonSnackB, Weight: 35},
		{Category: Voucher, Weight: 8},
		{Category: CashSmall, Weight: 5},
		{Category: CashLarge, Weight: 2},
	}
}

// Total returns the sum of the weights.
func (t Table) Total() int {
	total := 0
	for _, w := range t {
		total += w.Weight
	}
	return total
}

// Validate returns ErrInvalidRewardTable when the table is empty or its
// weights do not add up to a positive total.
func (t Table) Validate() error {
	if len(t) == 0 || t.Total() <= 0 {
		return shared.ErrInvalidRewardTable
	}
	return nil
}

// Pick selects the first category whose cumulative weight reaches r.
// Rolls that match nothing (r outside [1, total]) fall back to the last category.
func Pick(table Table, r int) (Category, error) {
	if err := table.Validate(); err != nil {
		return "", err
	}

	cumulative := 0
	if r >= MinRoll {
		for _, w := range table {
			cumulative += w.Weight
			if cumulative >= r {
				return w.Category, nil
			}
		}
	}
	return table[len(table)-1].Category, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RANDOMNESS
// ══════════════════════════════════════════════════════════════════════════════

// RandomSource yields uniformly distributed rolls in [MinRoll, MaxRoll].
type RandomSource interface {
	Roll() int
}

// MathRandSource draws rolls from math/rand/v2.
type MathRandSource struct {
	rng *rand.Rand
}

// NewMathRandSource uses the auto-seeded global generator when rng is nil.
func NewMathRandSource(rng *rand.Rand) *MathRandSource {
	return &MathRandSource{rng: rng}
}

// Roll implements RandomSource.
func (s *MathRandSource) Roll() int {
	if s.rng == nil {
		return rand.IntN(MaxRoll) + MinRoll
	}
	return s.rng.IntN(MaxRoll) + MinRoll
}
