package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/infrastructure/persistence/memory"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// 2025-03-10 09:00 in America/Sao_Paulo.
var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type spyCache struct {
	invalidations int
}

func (c *spyCache) Get(context.Context) ([]leaderboard.Standing, bool, error) { return nil, false, nil }
func (c *spyCache) Set(context.Context, []leaderboard.Standing, time.Duration) error {
	return nil
}
func (c *spyCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

type spyRecorder struct {
	draws     []string
	redeemed  []string
	mutations []string
}

func (r *spyRecorder) DrawRecorded(category string)   { r.draws = append(r.draws, category) }
func (r *spyRecorder) RewardRedeemed(category string) { r.redeemed = append(r.redeemed, category) }
func (r *spyRecorder) Mutation(kind string)           { r.mutations = append(r.mutations, kind) }

type fixture struct {
	store   *memory.Store
	cache   *spyCache
	metrics *spyRecorder
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Cleanup(timeutil.SetClock(func() time.Time { return fixedNow }))

	f := &fixture{
		store:   memory.NewStore().WithClock(func() time.Time { return fixedNow }),
		cache:   &spyCache{},
		metrics: &spyRecorder{},
	}
	f.deps = Deps{Cache: f.cache, Metrics: f.metrics}
	return f
}

func (f *fixture) register(t *testing.T, name, enrollment string) *student.Student {
	t.Helper()
	s, err := NewRegisterStudentHandler(f.store.Students(), f.deps).Handle(context.Background(), RegisterStudentCommand{
		Name:       name,
		Enrollment: enrollment,
	})
	require.NoError(t, err)
	return s
}

func TestRegisterStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.register(t, "  Ana   Souza ", "2025001")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Ana Souza", s.Name)
	assert.True(t, s.Active)
	assert.Equal(t, 1, f.cache.invalidations)

	handler := NewRegisterStudentHandler(f.store.Students(), f.deps)

	_, err := handler.Handle(ctx, RegisterStudentCommand{Name: "Bruno", Enrollment: "2025001"})
	assert.ErrorIs(t, err, shared.ErrStudentAlreadyExists)

	_, err = handler.Handle(ctx, RegisterStudentCommand{Name: "   ", Enrollment: "2025002"})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(ctx, RegisterStudentCommand{Name: "Carla", Email: "not-an-email", Enrollment: "2025003"})
	assert.True(t, shared.IsValidation(err))
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "Ana", "001")

	inactive := false
	name := "Ana Lima"
	got, err := NewUpdateStudentHandler(f.store.Students(), f.deps).Handle(ctx, UpdateStudentCommand{
		StudentID: s.ID,
		Name:      &name,
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", got.Name)
	assert.False(t, got.Active)

	_, err = NewUpdateStudentHandler(f.store.Students(), f.deps).Handle(ctx, UpdateStudentCommand{StudentID: "missing"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestChangedLogsInvalidationFailure(t *testing.T) {
	deps := Deps{Cache: failingCache{}}.withDefaults()
	assert.NotPanics(t, func() { deps.changed(context.Background(), "student.updated") })
}

type failingCache struct{}

func (failingCache) Get(context.Context) ([]leaderboard.Standing, bool, error) {
	return nil, false, shared.ErrServiceUnavailable
}
func (failingCache) Set(context.Context, []leaderboard.Standing, time.Duration) error {
	return shared.ErrServiceUnavailable
}
func (failingCache) Invalidate(context.Context) error { return shared.ErrServiceUnavailable }

func TestDeleteStudent_RemovesEverythingRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.register(t, "Ana", "001")
	bruno := f.register(t, "Bruno", "002")
	quiz := f.createActivity(t, "Quiz", 10)

	_, err := NewRecordGradeHandler(f.store.Students(), f.store.Activities(), f.store.Grades(), f.deps).Handle(ctx, RecordGradeCommand{
		ActivityID: quiz.ID,
		StudentID:  ana.ID,
		Value:      8,
	})
	require.NoError(t, err)
	_, err = NewRecordAttendanceHandler(f.store.Students(), f.store.Attendance(), f.deps).Handle(ctx, RecordAttendanceCommand{
		StudentID: ana.ID,
		Date:      "2025-03-10",
	})
	require.NoError(t, err)
	draw, err := NewDrawRewardHandler(f.store.Students(), f.store.Rewards(), reward.DefaultTable(), fixedRoll(10), f.deps)
	require.NoError(t, err)
	_, err = draw.Handle(ctx, DrawRewardCommand{StudentID: ana.ID})
	require.NoError(t, err)
	_, err = draw.Handle(ctx, DrawRewardCommand{StudentID: bruno.ID})
	require.NoError(t, err)

	g, err := NewCreateGroupHandler(f.store.Groups(), f.deps).Handle(ctx, CreateGroupCommand{Name: "Team Blue"})
	require.NoError(t, err)
	_, err = NewAddGroupMembersHandler(f.store.Groups(), f.store.Students(), f.deps).Handle(ctx, AddGroupMembersCommand{
		GroupID:    g.ID,
		StudentIDs: []string{ana.ID, bruno.ID},
		LeaderID:   ana.ID,
	})
	require.NoError(t, err)
	before := f.cache.invalidations

	handler := NewDeleteStudentHandler(f.store.Students(), f.deps)
	require.NoError(t, handler.Handle(ctx, DeleteStudentCommand{StudentID: ana.ID}))
	assert.Equal(t, before+1, f.cache.invalidations)

	_, err = f.store.Students().GetByID(ctx, ana.ID)
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	grades, err := f.store.Grades().ListByActivity(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, grades)

	records, err := f.store.Attendance().ListAttendance(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	draws, total, err := f.store.Rewards().List(ctx, shared.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, bruno.ID, draws[0].StudentID)

	stored, err := f.store.Groups().GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LeaderID)
	members, err := f.store.Groups().ListGroupMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, bruno.ID, members[0].ID)

	assert.ErrorIs(t, handler.Handle(ctx, DeleteStudentCommand{StudentID: ana.ID}), shared.ErrStudentNotFound)
}
