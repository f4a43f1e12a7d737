package memory

import (
	"context"
	"sort"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

var (
	_ activity.Repository      = (*ActivityRepository)(nil)
	_ activity.GradeRepository = (*GradeRepository)(nil)
)

// ActivityRepository implements activity.Repository.
type ActivityRepository struct {
	db *Store
}

func (r *ActivityRepository) Create(_ context.Context, a *activity.Activity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.activities[a.ID]; ok {
		return shared.NewDomainError("activity", "Create", shared.ErrAlreadyExists, "activity already exists")
	}
	c := *a
	r.db.activities[a.ID] = &c
	return nil
}

func (r *ActivityRepository) GetByID(_ context.Context, id string) (*activity.Activity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.activities[id]
	if !ok {
		return nil, shared.ErrActivityNotFound
	}
	c := *a
	return &c, nil
}

func (r *ActivityRepository) Update(_ context.Context, a *activity.Activity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.activities[a.ID]; !ok {
		return shared.ErrActivityNotFound
	}
	c := *a
	r.db.activities[a.ID] = &c
	return nil
}

// Delete removes the activity and every grade posted for it.
func (r *ActivityRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.activities[id]; !ok {
		return shared.ErrActivityNotFound
	}
	delete(r.db.activities, id)
	r.db.dropGradesLocked(func(g *activity.Grade) bool { return g.ActivityID == id })
	return nil
}

func (r *ActivityRepository) List(_ context.Context, activeOnly bool) ([]*activity.Activity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*activity.Activity, 0, len(r.db.activities))
	for _, a := range r.db.activities {
		if activeOnly && !a.Active {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ActivityRepository) CountActive(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, a := range r.db.activities {
		if a.Active {
			n++
		}
	}
	return n, nil
}

// GradeRepository implements activity.GradeRepository.
type GradeRepository struct {
	db *Store
}

func (r *GradeRepository) CreateGrade(_ context.Context, g *activity.Grade) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[g.StudentID]; !ok {
		return shared.ErrStudentNotFound
	}
	if _, ok := r.db.activities[g.ActivityID]; !ok {
		return shared.ErrActivityNotFound
	}
	if _, ok := r.db.grades[g.ID]; ok {
		return shared.ErrGradeAlreadyExists
	}
	for _, other := range r.db.grades {
		if other.StudentID == g.StudentID && other.ActivityID == g.ActivityID {
			return shared.ErrGradeAlreadyExists
		}
	}
	c := *g
	r.db.grades[g.ID] = &c
	return nil
}

func (r *GradeRepository) GetGrade(_ context.Context, id string) (*activity.Grade, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	g, ok := r.db.grades[id]
	if !ok {
		return nil, shared.ErrGradeNotFound
	}
	c := *g
	return &c, nil
}

func (r *GradeRepository) FindGrade(_ context.Context, studentID, activityID string) (*activity.Grade, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, g := range r.db.grades {
		if g.StudentID == studentID && g.ActivityID == activityID {
			c := *g
			return &c, nil
		}
	}
	return nil, shared.ErrGradeNotFound
}

func (r *GradeRepository) UpdateGrade(_ context.Context, g *activity.Grade, change *activity.GradeChange) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.grades[g.ID]; !ok {
		return shared.ErrGradeNotFound
	}
	c := *g
	r.db.grades[g.ID] = &c
	if change != nil {
		cc := *change
		r.db.gradeChanges[g.ID] = append(r.db.gradeChanges[g.ID], &cc)
	}
	return nil
}

func (r *GradeRepository) DeleteGrade(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.grades[id]; !ok {
		return shared.ErrGradeNotFound
	}
	delete(r.db.grades, id)
	delete(r.db.gradeChanges, id)
	return nil
}

func (r *GradeRepository) ListGrades(_ context.Context, studentID string) ([]*activity.Grade, error) {
	return r.filter(func(g *activity.Grade) bool { return g.StudentID == studentID }), nil
}

func (r *GradeRepository) ListByActivity(_ context.Context, activityID string) ([]*activity.Grade, error) {
	return r.filter(func(g *activity.Grade) bool { return g.ActivityID == activityID }), nil
}

func (r *GradeRepository) filter(keep func(*activity.Grade) bool) []*activity.Grade {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*activity.Grade, 0)
	for _, g := range r.db.grades {
		if keep(g) {
			c := *g
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *GradeRepository) History(_ context.Context, gradeID string) ([]*activity.GradeChange, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	log := r.db.gradeChanges[gradeID]
	out := make([]*activity.GradeChange, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		c := *log[i]
		out = append(out, &c)
	}
	return out, nil
}
