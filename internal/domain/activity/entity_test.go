package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

var now = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func TestNewActivity(t *testing.T) {
	a, err := NewActivity("a1", "  Prova 1 ", "", nil, 0, now)
	require.NoError(t, err)
	assert.Equal(t, "Prova 1", a.Name)
	assert.Equal(t, DefaultMaxValue, a.MaxValue)
	assert.True(t, a.Active)

	_, err = NewActivity("a2", "", "", nil, 5, now)
	assert.True(t, shared.IsValidation(err))

	_, err = NewActivity("a3", "Trabalho", "", nil, 10.5, now)
	assert.True(t, errors.Is(err, shared.ErrValueOutOfRange))

	_, err = NewActivity("a4", "Trabalho", "", nil, -1, now)
	assert.True(t, errors.Is(err, shared.ErrValueOutOfRange))
}

func TestNewGrade_RespectsActivityMax(t *testing.T) {
	act := &Activity{ID: "a1", Name: "Quiz", MaxValue: 5, Active: true}

	g, err := NewGrade("g1", "s1", act, 4.56, "", "teacher", now)
	require.NoError(t, err)
	assert.Equal(t, shared.Score(4.6), g.Value)
	assert.Equal(t, "a1", g.ActivityID)

	_, err = NewGrade("g2", "s1", act, 5.1, "", "teacher", now)
	assert.True(t, errors.Is(err, shared.ErrGradeOutOfRange))

	_, err = NewGrade("g3", "s1", act, -0.1, "", "teacher", now)
	assert.True(t, errors.Is(err, shared.ErrValueOutOfRange))

	_, err = NewGrade("g4", "s1", act, 5, "", "teacher", now)
	assert.NoError(t, err)
}

func TestGrade_ChangeWritesHistoryOnlyWhenValueChanges(t *testing.T) {
	act := &Activity{ID: "a1", Name: "Quiz", MaxValue: 10}
	g, err := NewGrade("g1", "s1", act, 7, "first", "teacher", now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	change, err := g.Change(act, 7, "only notes", "", "teacher", "c0", later)
	require.NoError(t, err)
	assert.Nil(t, change)
	assert.Equal(t, "only notes", g.Notes)

	change, err = g.Change(act, 8.5, "regraded", "", "coordinator", "c1", later)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, shared.Score(7), change.OldValue)
	assert.Equal(t, shared.Score(8.5), change.NewValue)
	assert.Equal(t, DefaultChangeReason, change.Reason)
	assert.Equal(t, "coordinator", change.ChangedBy)
	assert.Equal(t, "g1", change.GradeID)
	assert.Equal(t, shared.Score(8.5), g.Value)
	assert.Equal(t, later, g.UpdatedAt)

	_, err = g.Change(act, 11, "", "typo", "teacher", "c2", later)
	assert.True(t, errors.Is(err, shared.ErrGradeOutOfRange))
	assert.Equal(t, shared.Score(8.5), g.Value)
}
