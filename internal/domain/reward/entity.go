package reward

import (
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// Draw is the immutable record of one slot-machine play. Only the redemption
// fields change after creation, and only once.
type Draw struct {
	ID        string
	StudentID string
	Category  Category

	// Roll is the sample the category was selected with.
	Roll int

	DrawnAt time.Time

	Redeemed   bool
	RedeemedAt *time.Time
	RedeemedBy string
}

// Redeem marks the prize as handed over.
func (d *Draw) Redeem(by string, now time.Time) error {
	if d.Redeemed {
		return shared.ErrAlreadyRedeemed
	}
	d.Redeemed = true
	d.RedeemedAt = &now
	d.RedeemedBy = by
	return nil
}

// ValueCents is the monetary value of the prize.
func (d *Draw) ValueCents() int64 {
	return d.Category.ValueCents()
}

// Stats aggregates the draw log.
type Stats struct {
	Total      int
	Redeemed   int
	Pending    int
	ByCategory map[Category]int
}

// Summarize builds Stats from a list of draws.
func Summarize(draws []*Draw) Stats {
	s := Stats{ByCategory: make(map[Category]int)}
	for _, d := range draws {
		s.Total++
		if d.Redeemed {
			s.Redeemed++
		} else {
			s.Pending++
		}
		s.ByCategory[d.Category]++
	}
	return s
}
