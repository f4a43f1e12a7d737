// Package student contains the student domain model: the roster entity that
// grades, attendance records, group memberships and reward draws refer to.
package student

import (
	"strings"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentNumber is the school-issued registration code (matrícula).
type EnrollmentNumber string

// IsValid checks that the enrollment number is 1-20 chars without whitespace.
func (e EnrollmentNumber) IsValid() bool {
	s := string(e)
	return len(s) >= 1 && len(s) <= 20 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (e EnrollmentNumber) String() string {
	return string(e)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a member of the class roster.
type Student struct {
	// ID is the internal identifier (UUID string).
	ID string

	// Name is the display name, also the final ranking tie-break.
	Name string

	// Email is optional.
	Email string

	// Enrollment is unique across the roster.
	Enrollment EnrollmentNumber

	// Active students take part in standings, attendance and draws.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStudent validates input and builds an active student.
func NewStudent(id, name, email string, enrollment EnrollmentNumber, now time.Time) (*Student, error) {
	s := &Student{
		ID:         id,
		Name:       shared.CleanName(name),
		Email:      strings.TrimSpace(email),
		Enrollment: EnrollmentNumber(strings.TrimSpace(string(enrollment))),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks entity invariants.
func (s *Student) Validate() error {
	if s.Name == "" || len(s.Name) > 100 {
		return shared.ErrInvalidStudentName
	}
	if !s.Enrollment.IsValid() {
		return shared.ErrInvalidEnrollment
	}
	return nil
}

// Rename changes the display name.
func (s *Student) Rename(name string, now time.Time) error {
	clean := shared.CleanName(name)
	if clean == "" || len(clean) > 100 {
		return shared.ErrInvalidStudentName
	}
	s.Name = clean
	s.UpdatedAt = now
	return nil
}

// Deactivate removes the student from standings without deleting history.
func (s *Student) Deactivate(now time.Time) {
	s.Active = false
	s.UpdatedAt = now
}

// Activate puts the student back on the active roster.
func (s *Student) Activate(now time.Time) {
	s.Active = true
	s.UpdatedAt = now
}

// EnsureActive returns ErrStudentNotActive for inactive students.
func (s *Student) EnsureActive() error {
	if !s.Active {
		return shared.ErrStudentNotActive
	}
	return nil
}
