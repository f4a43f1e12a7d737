package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

func (f *fixture) createActivity(t *testing.T, name string, maxValue float64) *activity.Activity {
	t.Helper()
	a, err := NewCreateActivityHandler(f.store.Activities(), f.deps).Handle(context.Background(), CreateActivityCommand{
		Name:     name,
		MaxValue: maxValue,
	})
	require.NoError(t, err)
	return a
}

func TestCreateActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	handler := NewCreateActivityHandler(f.store.Activities(), f.deps)

	a, err := handler.Handle(ctx, CreateActivityCommand{Name: "Quiz 1", DueDate: "2025-03-20"})
	require.NoError(t, err)
	assert.Equal(t, shared.Score(10), a.MaxValue)
	require.NotNil(t, a.DueDate)
	assert.Equal(t, "2025-03-20", a.DueDate.Format("2006-01-02"))
	assert.Zero(t, f.cache.invalidations)

	_, err = handler.Handle(ctx, CreateActivityCommand{Name: "Quiz 2", DueDate: "20/03/2025"})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(ctx, CreateActivityCommand{Name: "Quiz 3", MaxValue: 12})
	assert.True(t, shared.IsValidation(err))
}

func TestUpdateActivity_MaxBelowPostedGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")
	a := f.createActivity(t, "Essay", 10)

	_, err := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps).Handle(ctx, RecordGradeCommand{
		ActivityID: a.ID,
		StudentID:  s.ID,
		Value:      8,
	})
	require.NoError(t, err)

	handler := NewUpdateActivityHandler(f.store.Activities(), f.store.Grades(), f.deps)

	lower := 7.0
	_, err = handler.Handle(ctx, UpdateActivityCommand{ActivityID: a.ID, MaxValue: &lower})
	assert.ErrorIs(t, err, ErrMaxBelowGrades)

	ok := 8.0
	updated, err := handler.Handle(ctx, UpdateActivityCommand{ActivityID: a.ID, MaxValue: &ok})
	require.NoError(t, err)
	assert.Equal(t, shared.Score(8), updated.MaxValue)
}

func TestRecordGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")
	a := f.createActivity(t, "Quiz", 5)
	handler := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps)
	before := f.cache.invalidations

	g, err := handler.Handle(ctx, RecordGradeCommand{ActivityID: a.ID, StudentID: s.ID, Value: 4.25})
	require.NoError(t, err)
	assert.Equal(t, shared.Score(4.3), g.Value)
	assert.Equal(t, before+1, f.cache.invalidations)

	_, err = handler.Handle(ctx, RecordGradeCommand{ActivityID: a.ID, StudentID: s.ID, Value: 3})
	assert.ErrorIs(t, err, shared.ErrGradeAlreadyExists)

	other := f.register(t, "Bruno", "002")
	_, err = handler.Handle(ctx, RecordGradeCommand{ActivityID: a.ID, StudentID: other.ID, Value: 5.5})
	assert.ErrorIs(t, err, shared.ErrGradeOutOfRange)

	_, err = handler.Handle(ctx, RecordGradeCommand{ActivityID: "missing", StudentID: other.ID, Value: 1})
	assert.ErrorIs(t, err, shared.ErrActivityNotFound)

	inactive := false
	_, err = NewUpdateActivityHandler(f.store.Activities(), f.store.Grades(), f.deps).Handle(ctx, UpdateActivityCommand{
		ActivityID: a.ID,
		Active:     &inactive,
	})
	require.NoError(t, err)
	_, err = handler.Handle(ctx, RecordGradeCommand{ActivityID: a.ID, StudentID: other.ID, Value: 1})
	assert.ErrorIs(t, err, shared.ErrActivityNotActive)
}

func TestUpdateGrade_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")
	a := f.createActivity(t, "Quiz", 10)

	g, err := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps).Handle(ctx, RecordGradeCommand{
		ActivityID: a.ID,
		StudentID:  s.ID,
		Value:      6,
	})
	require.NoError(t, err)

	handler := NewUpdateGradeHandler(f.store.Activities(), f.store.Grades(), f.deps)

	res, err := handler.Handle(ctx, UpdateGradeCommand{
		ActivityID: a.ID,
		StudentID:  s.ID,
		Value:      7.5,
		ChangedBy:  "prof",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Change)
	assert.Equal(t, shared.Score(6), res.Change.OldValue)
	assert.Equal(t, shared.Score(7.5), res.Change.NewValue)
	assert.Equal(t, activity.DefaultChangeReason, res.Change.Reason)

	invalidations := f.cache.invalidations
	res, err = handler.Handle(ctx, UpdateGradeCommand{
		ActivityID: a.ID,
		StudentID:  s.ID,
		Value:      7.5,
		Notes:      "late",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Change)
	assert.Equal(t, "late", res.Grade.Notes)
	assert.Equal(t, invalidations, f.cache.invalidations)

	history, err := f.store.Grades().History(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = handler.Handle(ctx, UpdateGradeCommand{ActivityID: a.ID, StudentID: "nobody", Value: 1})
	assert.ErrorIs(t, err, shared.ErrGradeNotFound)
}

func TestDeleteGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")
	a := f.createActivity(t, "Quiz", 10)

	g, err := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps).Handle(ctx, RecordGradeCommand{
		ActivityID: a.ID,
		StudentID:  s.ID,
		Value:      9,
	})
	require.NoError(t, err)

	handler := NewDeleteGradeHandler(f.store.Grades(), f.deps)
	require.NoError(t, handler.Handle(ctx, DeleteGradeCommand{GradeID: g.ID}))
	assert.ErrorIs(t, handler.Handle(ctx, DeleteGradeCommand{GradeID: g.ID}), shared.ErrGradeNotFound)

	grades, err := f.store.Grades().ListGrades(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestDeleteActivity_CascadesGrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")
	quiz := f.createActivity(t, "Quiz", 10)
	essay := f.createActivity(t, "Essay", 10)

	record := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps)
	for _, a := range []string{quiz.ID, essay.ID} {
		_, err := record.Handle(ctx, RecordGradeCommand{ActivityID: a, StudentID: s.ID, Value: 7})
		require.NoError(t, err)
	}
	before := f.cache.invalidations

	handler := NewDeleteActivityHandler(f.store.Activities(), f.deps)
	require.NoError(t, handler.Handle(ctx, DeleteActivityCommand{ActivityID: quiz.ID}))
	assert.Equal(t, before+1, f.cache.invalidations)

	_, err := f.store.Activities().GetByID(ctx, quiz.ID)
	assert.ErrorIs(t, err, shared.ErrActivityNotFound)

	left, err := f.store.Grades().ListGrades(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, essay.ID, left[0].ActivityID)

	assert.ErrorIs(t, handler.Handle(ctx, DeleteActivityCommand{ActivityID: quiz.ID}), shared.ErrActivityNotFound)
}
