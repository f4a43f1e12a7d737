package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seedStudent(t *testing.T, store *Store, id, name, enrollment string) *student.Student {
	t.Helper()
	s, err := student.NewStudent(id, name, "", student.EnrollmentNumber(enrollment), now)
	require.NoError(t, err)
	require.NoError(t, store.Students().Create(context.Background(), s))
	return s
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Students()

	seedStudent(t, store, "s2", "Bruno", "002")
	seedStudent(t, store, "s1", "Ana", "001")

	dup, err := student.NewStudent("s3", "Carla", "", "001", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	got.Deactivate(now)
	require.NoError(t, repo.Update(ctx, got))

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana", all[0].Name)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bruno", active[0].Name)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestStudentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedStudent(t, store, "s1", "Ana", "001")

	got, err := store.Students().GetByID(ctx, "s1")
	require.NoError(t, err)
	got.Name = "changed"

	again, err := store.Students().GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.Name)
}

func TestGradeRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedStudent(t, store, "s1", "Ana", "001")

	act, err := activity.NewActivity("a1", "Quiz", "", nil, 10, now)
	require.NoError(t, err)
	require.NoError(t, store.Activities().Create(ctx, act))

	g, err := activity.NewGrade("g1", "s1", act, 7, "", "teacher", now)
	require.NoError(t, err)
	repo := store.Grades()
	require.NoError(t, repo.CreateGrade(ctx, g))

	again, err := activity.NewGrade("g2", "s1", act, 8, "", "teacher", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.CreateGrade(ctx, again), shared.ErrGradeAlreadyExists)

	change, err := g.Change(act, 9, "", "", "teacher", "c1", now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateGrade(ctx, g, change))

	change, err = g.Change(act, 9.5, "", "recount", "teacher", "c2", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateGrade(ctx, g, change))

	history, err := repo.History(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c2", history[0].ID)
	assert.Equal(t, activity.DefaultChangeReason, history[1].Reason)

	found, err := repo.FindGrade(ctx, "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, shared.Score(9.5), found.Value)

	require.NoError(t, repo.DeleteGrade(ctx, "g1"))
	list, err := repo.ListGrades(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, repo.DeleteGrade(ctx, "g1"), shared.ErrGradeNotFound)
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedStudent(t, store, "s1", "Ana", "001")
	repo := store.Attendance()

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec, err := attendance.NewRecord(
			"r"+string(rune('0'+i)), "s1", day.AddDate(0, 0, i), day.AddDate(0, 0, 10),
			i != 1, "", "teacher", now,
		)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, rec))
	}

	dup, err := attendance.NewRecord("r9", "s1", day, day, true, "", "teacher", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAttendanceAlreadyExists)

	ranged, err := repo.ListRange(ctx, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "r2", ranged[0].ID)

	present, err := repo.CountPresent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, present)

	require.NoError(t, repo.Delete(ctx, "r0"))
	all, err := repo.ListAttendance(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGroupRepository_Membership(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedStudent(t, store, "s1", "Bruno", "001")
	seedStudent(t, store, "s2", "Ana", "002")
	repo := store.Groups()

	g, err := group.NewGroup("g1", "Team A", "", "teacher", now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, g))

	created, err := repo.AddMember(ctx, group.Membership{GroupID: "g1", StudentID: "s1", AddedAt: now})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.AddMember(ctx, group.Membership{GroupID: "g1", StudentID: "s1", AddedAt: now})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.AddMember(ctx, group.Membership{GroupID: "g1", StudentID: "s2", AddedAt: now})
	require.NoError(t, err)

	members, err := repo.ListGroupMembers(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Ana", members[0].Name)

	require.NoError(t, g.AssignLeader("s1", []string{"s1", "s2"}, now))
	require.NoError(t, repo.Update(ctx, g))

	cleared, err := repo.RemoveMember(ctx, "g1", "s2", now)
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = repo.RemoveMember(ctx, "g1", "s1", now)
	require.NoError(t, err)
	assert.True(t, cleared)
	stored, err := repo.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored.LeaderID)

	_, err = repo.RemoveMember(ctx, "g1", "s1", now)
	assert.ErrorIs(t, err, shared.ErrMembershipNotFound)
}

func TestGroupRepository_UpdateRejectsOutsideLeader(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedStudent(t, store, "s1", "Ana", "001")
	repo := store.Groups()

	g, err := group.NewGroup("g1", "Team A", "", "teacher", now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, g))

	g.LeaderID = "s1"
	assert.ErrorIs(t, repo.Update(ctx, g), shared.ErrLeaderNotMember)

	require.NoError(t, repo.Delete(ctx, "g1"))
	assert.ErrorIs(t, repo.Delete(ctx, "g1"), shared.ErrGroupNotFound)
}

func TestRewardRepository(t *testing.T) {
	ctx := context.Background()
	clock := now
	store := NewStore().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	seedStudent(t, store, "s1", "Ana", "001")
	repo := store.Rewards()

	first, err := repo.RecordDraw(ctx, "s1", reward.CommonSnackA, 10)
	require.NoError(t, err)
	second, err := repo.RecordDraw(ctx, "s1", reward.CashLarge, 100)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = repo.RecordDraw(ctx, "missing", reward.Voucher, 50)
	assert.True(t, shared.IsNotFound(err))

	require.NoError(t, first.Redeem("teacher", now))
	require.NoError(t, repo.MarkRedeemed(ctx, first))
	assert.ErrorIs(t, repo.MarkRedeemed(ctx, first), shared.ErrAlreadyRedeemed)

	page, total, err := repo.List(ctx, shared.NewPagination(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, reward.CashLarge, pending[0].Category)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Redeemed)
	assert.Equal(t, 1, stats.ByCategory[reward.CommonSnackA])
}

func TestStandingsCache(t *testing.T) {
	ctx := context.Background()
	clock := now
	cache := NewStandingsCache()
	cache.now = func() time.Time { return clock }

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, []leaderboard.Standing{{StudentID: "s1", Position: 1}}, time.Minute))
	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, got, 1)

	clock = clock.Add(2 * time.Minute)
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, nil, 0))
	_, ok, _ = cache.Get(ctx)
	assert.True(t, ok)
	require.NoError(t, cache.Invalidate(ctx))
	_, ok, _ = cache.Get(ctx)
	assert.False(t, ok)
}
