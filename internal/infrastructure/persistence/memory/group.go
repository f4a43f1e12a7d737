package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

var _ group.Repository = (*GroupRepository)(nil)

// GroupRepository implements group.Repository.
type GroupRepository struct {
	db *Store
}

func (r *GroupRepository) Create(_ context.Context, g *group.Group) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.groups[g.ID]; ok {
		return shared.ErrGroupAlreadyExists
	}
	c := *g
	r.db.groups[g.ID] = &c
	return nil
}

func (r *GroupRepository) GetByID(_ context.Context, id string) (*group.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	g, ok := r.db.groups[id]
	if !ok {
		return nil, shared.ErrGroupNotFound
	}
	c := *g
	return &c, nil
}

// Update fails with ErrLeaderNotMember when the leader is not a member at
// the time of the write.
func (r *GroupRepository) Update(_ context.Context, g *group.Group) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.groups[g.ID]; !ok {
		return shared.ErrGroupNotFound
	}
	if g.LeaderID != "" {
		if _, ok := r.db.members[g.ID][g.LeaderID]; !ok {
			return shared.ErrLeaderNotMember
		}
	}
	c := *g
	r.db.groups[g.ID] = &c
	return nil
}

func (r *GroupRepository) List(_ context.Context, activeOnly bool) ([]*group.Group, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*group.Group, 0, len(r.db.groups))
	for _, g := range r.db.groups {
		if activeOnly && !g.Active {
			continue
		}
		c := *g
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *GroupRepository) AddMember(_ context.Context, m group.Membership) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.groups[m.GroupID]; !ok {
		return false, shared.ErrGroupNotFound
	}
	if _, ok := r.db.students[m.StudentID]; !ok {
		return false, shared.ErrStudentNotFound
	}

	members := r.db.members[m.GroupID]
	if members == nil {
		members = make(map[string]group.Membership)
		r.db.members[m.GroupID] = members
	}
	if _, ok := members[m.StudentID]; ok {
		return false, nil
	}
	members[m.StudentID] = m
	return true, nil
}

func (r *GroupRepository) RemoveMember(_ context.Context, groupID, studentID string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	members := r.db.members[groupID]
	if _, ok := members[studentID]; !ok {
		return false, shared.ErrMembershipNotFound
	}
	delete(members, studentID)

	g := r.db.groups[groupID]
	if g == nil || !g.MemberLeft(studentID, at) {
		return false, nil
	}
	return true, nil
}

// Delete removes the group and its memberships.
func (r *GroupRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.groups[id]; !ok {
		return shared.ErrGroupNotFound
	}
	delete(r.db.groups, id)
	delete(r.db.members, id)
	return nil
}

func (r *GroupRepository) ListGroupMembers(_ context.Context, groupID string) ([]*student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*student.Student, 0, len(r.db.members[groupID]))
	for studentID := range r.db.members[groupID] {
		if s, ok := r.db.students[studentID]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	sortStudents(out)
	return out, nil
}
