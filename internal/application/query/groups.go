package query

import (
	"context"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GROUP RANKINGS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GroupRanking is one active group with its members ranked by total score.
type GroupRanking struct {
	GroupID     string                 `json:"group_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	LeaderID    string                 `json:"leader_id,omitempty"`
	LeaderName  string                 `json:"leader_name,omitempty"`
	Members     []leaderboard.Standing `json:"members"`
	MemberCount int                    `json:"member_count"`
	Average     float64                `json:"average"`
}

// GetGroupRankingsHandler lists every active group, ordered by name.
type GetGroupRankingsHandler struct {
	repos  Repositories
	loader *recordLoader
}

// NewGetGroupRankingsHandler creates a new GetGroupRankingsHandler.
func NewGetGroupRankingsHandler(repos Repositories, concurrency int) *GetGroupRankingsHandler {
	return &GetGroupRankingsHandler{repos: repos, loader: newRecordLoader(repos, concurrency)}
}

// Handle ranks the members of each group. Records of a student who belongs to
// several groups are loaded once.
func (h *GetGroupRankingsHandler) Handle(ctx context.Context) ([]GroupRanking, error) {
	groups, err := h.repos.Groups.List(ctx, true)
	if err != nil {
		return nil, err
	}

	membersByGroup := make(map[string][]*student.Student, len(groups))
	unique := make(map[string]*student.Student)
	for _, g := range groups {
		members, err := h.repos.Groups.ListGroupMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		membersByGroup[g.ID] = members
		for _, m := range members {
			unique[m.ID] = m
		}
	}

	everyone := make([]*student.Student, 0, len(unique))
	for _, s := range unique {
		everyone = append(everyone, s)
	}
	records, err := h.loader.load(ctx, everyone)
	if err != nil {
		return nil, err
	}

	result := make([]GroupRanking, 0, len(groups))
	for _, g := range groups {
		members := membersByGroup[g.ID]
		ranked := leaderboard.RankGroup(members, records.grades, records.attendance)

		ranking := GroupRanking{
			GroupID:     g.ID,
			Name:        g.Name,
			Description: g.Description,
			LeaderID:    g.LeaderID,
			Members:     ranked,
			MemberCount: len(ranked),
			Average:     leaderboard.GroupAverage(ranked),
		}
		if leader, ok := unique[g.LeaderID]; ok {
			ranking.LeaderName = leader.Name
		}
		result = append(result, ranking)
	}
	return result, nil
}
