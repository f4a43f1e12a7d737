package student

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

func TestNewStudent(t *testing.T) {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	s, err := NewStudent("id1", "  Maria   Silva ", " maria@escola.br ", " 2025001 ", now)
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", s.Name)
	assert.Equal(t, "maria@escola.br", s.Email)
	assert.Equal(t, EnrollmentNumber("2025001"), s.Enrollment)
	assert.True(t, s.Active)

	_, err = NewStudent("id2", "", "", "2025002", now)
	assert.True(t, errors.Is(err, shared.ErrEmptyValue))

	_, err = NewStudent("id3", "João", "", "20 25", now)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestStudent_ActiveState(t *testing.T) {
	now := time.Now()
	s := &Student{ID: "1", Name: "Ana", Enrollment: "1", Active: true}
	assert.NoError(t, s.EnsureActive())

	s.Deactivate(now)
	assert.True(t, errors.Is(s.EnsureActive(), shared.ErrInvalidState))

	s.Activate(now)
	assert.NoError(t, s.EnsureActive())

	assert.Error(t, s.Rename("  ", now))
	require.NoError(t, s.Rename("Ana Paula", now))
	assert.Equal(t, "Ana Paula", s.Name)
}
