// Package group contains study groups and their memberships.
package group

import (
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// Group is a study group. A student may belong to several groups.
type Group struct {
	ID          string
	Name        string
	Description string

	// LeaderID is empty when the group has no leader. When set it must be a member.
	LeaderID string

	Active    bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGroup builds an active group without a leader.
func NewGroup(id, name, description, createdBy string, now time.Time) (*Group, error) {
	g := &Group{
		ID:          id,
		Name:        shared.CleanName(name),
		Description: strings.TrimSpace(description),
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks entity invariants that do not need the member list.
func (g *Group) Validate() error {
	if g.Name == "" || len(g.Name) > 100 {
		return shared.ErrInvalidGroupName
	}
	return nil
}

// AssignLeader sets the leader after checking membership.
func (g *Group) AssignLeader(studentID string, memberIDs []string, now time.Time) error {
	if studentID == "" {
		g.LeaderID = ""
		g.UpdatedAt = now
		return nil
	}
	for _, id := range memberIDs {
		if id == studentID {
			g.LeaderID = studentID
			g.UpdatedAt = now
			return nil
		}
	}
	return shared.ErrLeaderNotMember
}

// MemberLeft clears the leader when the leaving student held the role.
func (g *Group) MemberLeft(studentID string, now time.Time) bool {
	if g.LeaderID != studentID {
		return false
	}
	g.LeaderID = ""
	g.UpdatedAt = now
	return true
}

// Membership links a student to a group. Unique per (group, student).
type Membership struct {
	GroupID   string
	StudentID string
	AddedBy   string
	AddedAt   time.Time
}
