package memory

import (
	"context"
	"sort"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

var _ student.Repository = (*StudentRepository)(nil)

// StudentRepository implements student.Repository.
type StudentRepository struct {
	db *Store
}

func (r *StudentRepository) enrollmentTaken(s *student.Student) bool {
	for _, other := range r.db.students {
		if other.ID != s.ID && other.Enrollment == s.Enrollment {
			return true
		}
	}
	return false
}

func (r *StudentRepository) Create(_ context.Context, s *student.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[s.ID]; ok || r.enrollmentTaken(s) {
		return shared.ErrStudentAlreadyExists
	}
	c := *s
	r.db.students[s.ID] = &c
	return nil
}

func (r *StudentRepository) GetByID(_ context.Context, id string) (*student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	c := *s
	return &c, nil
}

func (r *StudentRepository) Update(_ context.Context, s *student.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[s.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	if r.enrollmentTaken(s) {
		return shared.ErrStudentAlreadyExists
	}
	c := *s
	r.db.students[s.ID] = &c
	return nil
}

// Delete removes the student with every grade, attendance record, membership
// and draw of theirs. Groups they led lose their leader.
func (r *StudentRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[id]; !ok {
		return shared.ErrStudentNotFound
	}
	delete(r.db.students, id)

	r.db.dropGradesLocked(func(g *activity.Grade) bool { return g.StudentID == id })
	for recID, rec := range r.db.attendance {
		if rec.StudentID == id {
			delete(r.db.attendance, recID)
		}
	}
	for groupID, members := range r.db.members {
		delete(members, id)
		if g := r.db.groups[groupID]; g != nil && g.LeaderID == id {
			g.LeaderID = ""
		}
	}

	order := r.db.drawOrder[:0]
	for _, drawID := range r.db.drawOrder {
		if r.db.draws[drawID].StudentID == id {
			delete(r.db.draws, drawID)
			continue
		}
		order = append(order, drawID)
	}
	r.db.drawOrder = order
	return nil
}

func (r *StudentRepository) List(_ context.Context, activeOnly bool) ([]*student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*student.Student, 0, len(r.db.students))
	for _, s := range r.db.students {
		if activeOnly && !s.Active {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sortStudents(out)
	return out, nil
}

func (r *StudentRepository) GetByIDs(_ context.Context, ids []string) ([]*student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*student.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.db.students[id]; ok {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *StudentRepository) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, s := range r.db.students {
		if s.Active {
			n++
		}
	}
	return n, nil
}

func sortStudents(students []*student.Student) {
	sort.Slice(students, func(i, j int) bool {
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
}
