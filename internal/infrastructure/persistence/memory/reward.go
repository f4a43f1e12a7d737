package memory

import (
	"context"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"

	"github.com/google/uuid"
)

var _ reward.Repository = (*RewardRepository)(nil)

// RewardRepository implements reward.Repository.
type RewardRepository struct {
	db *Store
}

func (r *RewardRepository) RecordDraw(_ context.Context, studentID string, category reward.Category, roll int) (*reward.Draw, error) {
	if !category.IsValid() {
		return nil, shared.ErrUnknownCategory
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[studentID]; !ok {
		return nil, shared.ErrStudentNotFound
	}

	d := &reward.Draw{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Category:  category,
		Roll:      roll,
		DrawnAt:   r.db.now().UTC(),
	}
	r.db.draws[d.ID] = d
	r.db.drawOrder = append(r.db.drawOrder, d.ID)

	c := *d
	return &c, nil
}

func (r *RewardRepository) GetByID(_ context.Context, id string) (*reward.Draw, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.draws[id]
	if !ok {
		return nil, shared.ErrDrawNotFound
	}
	return copyDraw(d), nil
}

func (r *RewardRepository) MarkRedeemed(_ context.Context, d *reward.Draw) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.draws[d.ID]
	if !ok {
		return shared.ErrDrawNotFound
	}
	if stored.Redeemed {
		return shared.ErrAlreadyRedeemed
	}
	stored.Redeemed = true
	if d.RedeemedAt != nil {
		at := *d.RedeemedAt
		stored.RedeemedAt = &at
	}
	stored.RedeemedBy = d.RedeemedBy
	return nil
}

func (r *RewardRepository) List(_ context.Context, page shared.Pagination) ([]*reward.Draw, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	newest := r.newestFirst(func(*reward.Draw) bool { return true })
	total := len(newest)

	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit()
	if end > total {
		end = total
	}
	return newest[start:end], total, nil
}

func (r *RewardRepository) ListPending(_ context.Context) ([]*reward.Draw, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.newestFirst(func(d *reward.Draw) bool { return !d.Redeemed }), nil
}

func (r *RewardRepository) Stats(_ context.Context) (reward.Stats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return reward.Summarize(r.newestFirst(func(*reward.Draw) bool { return true })), nil
}

// newestFirst walks the insertion log backwards. Callers hold the lock.
func (r *RewardRepository) newestFirst(keep func(*reward.Draw) bool) []*reward.Draw {
	out := make([]*reward.Draw, 0, len(r.db.drawOrder))
	for i := len(r.db.drawOrder) - 1; i >= 0; i-- {
		d := r.db.draws[r.db.drawOrder[i]]
		if keep(d) {
			out = append(out, copyDraw(d))
		}
	}
	return out
}

func copyDraw(d *reward.Draw) *reward.Draw {
	c := *d
	if d.RedeemedAt != nil {
		at := *d.RedeemedAt
		c.RedeemedAt = &at
	}
	return &c
}
