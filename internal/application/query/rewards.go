package query

import (
	"context"
	"sort"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD DTOs
// ══════════════════════════════════════════════════════════════════════════════

// DrawDTO is one entry of the draw log.
type DrawDTO struct {
	ID          string          `json:"id"`
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Category    reward.Category `json:"category"`
	Label       string          `json:"label"`
	Tier        reward.Tier     `json:"tier"`
	Roll        int             `json:"roll"`
	ValueCents  int64           `json:"value_cents"`
	DrawnAt     time.Time       `json:"drawn_at"`
	Redeemed    bool            `json:"redeemed"`
	RedeemedAt  *time.Time      `json:"redeemed_at,omitempty"`
	RedeemedBy  string          `json:"redeemed_by,omitempty"`
}

// CategoryCount is the number of draws of one category.
type CategoryCount struct {
	Category reward.Category `json:"category"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
}

// rewardReader resolves student names for draw listings.
type rewardReader struct {
	repos Repositories
}

func (h *rewardReader) toDTOs(ctx context.Context, draws []*reward.Draw) ([]DrawDTO, error) {
	ids := make([]string, 0, len(draws))
	for _, d := range draws {
		ids = append(ids, d.StudentID)
	}
	students, err := h.repos.Students.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.Name
	}

	out := make([]DrawDTO, 0, len(draws))
	for _, d := range draws {
		out = append(out, DrawDTO{
			ID:          d.ID,
			StudentID:   d.StudentID,
			StudentName: names[d.StudentID],
			Category:    d.Category,
			Label:       d.Category.Label(),
			Tier:        d.Category.Tier(),
			Roll:        d.Roll,
			ValueCents:  d.ValueCents(),
			DrawnAt:     d.DrawnAt,
			Redeemed:    d.Redeemed,
			RedeemedAt:  d.RedeemedAt,
			RedeemedBy:  d.RedeemedBy,
		})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET REWARD HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetRewardHistoryQuery selects a page of the draw log. Page is 1-based.
type GetRewardHistoryQuery struct {
	Page int
}

// RewardHistoryResult is one page plus whole-log totals.
type RewardHistoryResult struct {
	Draws      []DrawDTO       `json:"draws"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
	Redeemed   int             `json:"redeemed"`
	Pending    int             `json:"pending"`
	ByCategory []CategoryCount `json:"by_category"`
}

// GetRewardHistoryHandler handles GetRewardHistoryQuery.
type GetRewardHistoryHandler struct {
	rewardReader
}

// NewGetRewardHistoryHandler creates a new GetRewardHistoryHandler.
func NewGetRewardHistoryHandler(repos Repositories) *GetRewardHistoryHandler {
	return &GetRewardHistoryHandler{rewardReader{repos: repos}}
}

// Handle returns draws newest first, 20 per page. Category counts are ordered
// by count descending; categories never drawn are omitted.
func (h *GetRewardHistoryHandler) Handle(ctx context.Context, q GetRewardHistoryQuery) (*RewardHistoryResult, error) {
	page := shared.NewPagination(q.Page, shared.DefaultPageSize)

	draws, total, err := h.repos.Rewards.List(ctx, page)
	if err != nil {
		return nil, err
	}
	stats, err := h.repos.Rewards.Stats(ctx)
	if err != nil {
		return nil, err
	}
	dtos, err := h.toDTOs(ctx, draws)
	if err != nil {
		return nil, err
	}

	return &RewardHistoryResult{
		Draws:      dtos,
		Page:       page.Page,
		PageSize:   page.Limit(),
		TotalPages: page.TotalPages(total),
		Total:      stats.Total,
		Redeemed:   stats.Redeemed,
		Pending:    stats.Pending,
		ByCategory: categoryCounts(stats.ByCategory),
	}, nil
}

func categoryCounts(counts map[reward.Category]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	// table order keeps ties deterministic
	for _, c := range reward.Categories() {
		if n := counts[c]; n > 0 {
			out = append(out, CategoryCount{Category: c, Label: c.Label(), Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// GET PENDING REWARDS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// PendingRewardsResult lists prizes not yet handed over.
type PendingRewardsResult struct {
	Draws     []DrawDTO `json:"draws"`
	CashLarge int       `json:"cash_large"`
	CashSmall int       `json:"cash_small"`
	Vouchers  int       `json:"vouchers"`
	Snacks    int       `json:"snacks"`
}

// GetPendingRewardsHandler lists unredeemed draws.
type GetPendingRewardsHandler struct {
	rewardReader
}

// NewGetPendingRewardsHandler creates a new GetPendingRewardsHandler.
func NewGetPendingRewardsHandler(repos Repositories) *GetPendingRewardsHandler {
	return &GetPendingRewardsHandler{rewardReader{repos: repos}}
}

// Handle returns pending draws newest first with per-kind counts.
func (h *GetPendingRewardsHandler) Handle(ctx context.Context) (*PendingRewardsResult, error) {
	draws, err := h.repos.Rewards.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	dtos, err := h.toDTOs(ctx, draws)
	if err != nil {
		return nil, err
	}

	result := &PendingRewardsResult{Draws: dtos}
	for _, d := range draws {
		switch {
		case d.Category == reward.CashLarge:
			result.CashLarge++
		case d.Category == reward.CashSmall:
			result.CashSmall++
		case d.Category == reward.Voucher:
			result.Vouchers++
		case d.Category.IsSnack():
			result.Snacks++
		}
	}
	return result, nil
}
