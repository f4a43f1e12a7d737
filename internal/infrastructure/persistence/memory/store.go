// Package memory implements every repository in process memory. It backs
// DB_IN_MEMORY=true runs and the application tests. Entities are copied in
// and out so callers never share state with the store.
package memory

import (
	"sync"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

// Store holds all tables behind a single lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	students     map[string]*student.Student
	activities   map[string]*activity.Activity
	grades       map[string]*activity.Grade
	gradeChanges map[string][]*activity.GradeChange
	attendance   map[string]*attendance.Record
	groups       map[string]*group.Group
	members      map[string]map[string]group.Membership
	draws        map[string]*reward.Draw
	drawOrder    []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:          time.Now,
		students:     make(map[string]*student.Student),
		activities:   make(map[string]*activity.Activity),
		grades:       make(map[string]*activity.Grade),
		gradeChanges: make(map[string][]*activity.GradeChange),
		attendance:   make(map[string]*attendance.Record),
		groups:       make(map[string]*group.Group),
		members:      make(map[string]map[string]group.Membership),
		draws:        make(map[string]*reward.Draw),
	}
}

// WithClock replaces the timestamp source used for draws.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Students returns the student repository.
func (s *Store) Students() *StudentRepository { return &StudentRepository{db: s} }

// Activities returns the activity repository.
func (s *Store) Activities() *ActivityRepository { return &ActivityRepository{db: s} }

// Grades returns the grade repository.
func (s *Store) Grades() *GradeRepository { return &GradeRepository{db: s} }

// Attendance returns the attendance repository.
func (s *Store) Attendance() *AttendanceRepository { return &AttendanceRepository{db: s} }

// Groups returns the group repository.
func (s *Store) Groups() *GroupRepository { return &GroupRepository{db: s} }

// Rewards returns the reward repository.
func (s *Store) Rewards() *RewardRepository { return &RewardRepository{db: s} }

// dropGradesLocked removes the grades matching keep together with their history.
func (s *Store) dropGradesLocked(keep func(*activity.Grade) bool) {
	for id, g := range s.grades {
		if keep(g) {
			delete(s.grades, id)
			delete(s.gradeChanges, id)
		}
	}
}
