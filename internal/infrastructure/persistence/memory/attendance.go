package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

var _ attendance.Repository = (*AttendanceRepository)(nil)

// AttendanceRepository implements attendance.Repository.
type AttendanceRepository struct {
	db *Store
}

func (r *AttendanceRepository) dayTaken(rec *attendance.Record) bool {
	for _, other := range r.db.attendance {
		if other.ID != rec.ID && other.StudentID == rec.StudentID && other.Date.Equal(rec.Date) {
			return true
		}
	}
	return false
}

func (r *AttendanceRepository) Create(_ context.Context, rec *attendance.Record) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[rec.StudentID]; !ok {
		return shared.ErrStudentNotFound
	}
	if _, ok := r.db.attendance[rec.ID]; ok || r.dayTaken(rec) {
		return shared.ErrAttendanceAlreadyExists
	}
	c := *rec
	r.db.attendance[rec.ID] = &c
	return nil
}

func (r *AttendanceRepository) GetByID(_ context.Context, id string) (*attendance.Record, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rec, ok := r.db.attendance[id]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	c := *rec
	return &c, nil
}

func (r *AttendanceRepository) Update(_ context.Context, rec *attendance.Record) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.attendance[rec.ID]; !ok {
		return shared.ErrAttendanceNotFound
	}
	if r.dayTaken(rec) {
		return shared.ErrAttendanceAlreadyExists
	}
	c := *rec
	r.db.attendance[rec.ID] = &c
	return nil
}

func (r *AttendanceRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.attendance[id]; !ok {
		return shared.ErrAttendanceNotFound
	}
	delete(r.db.attendance, id)
	return nil
}

func (r *AttendanceRepository) ListAttendance(_ context.Context, studentID string) ([]*attendance.Record, error) {
	return r.filter(func(rec *attendance.Record) bool { return rec.StudentID == studentID }), nil
}

func (r *AttendanceRepository) ListRange(_ context.Context, from, to time.Time) ([]*attendance.Record, error) {
	return r.filter(func(rec *attendance.Record) bool {
		return !rec.Date.Before(from) && !rec.Date.After(to)
	}), nil
}

func (r *AttendanceRepository) CountPresent(_ context.Context) (int, error) {
	return len(r.filter(func(rec *attendance.Record) bool { return rec.Present })), nil
}

// filter returns matching records, newest day first.
func (r *AttendanceRepository) filter(keep func(*attendance.Record) bool) []*attendance.Record {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*attendance.Record, 0)
	for _, rec := range r.db.attendance {
		if keep(rec) {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
