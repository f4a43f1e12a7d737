package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

func newStudent(id, name string) *student.Student {
	return &student.Student{ID: id, Name: name, Enrollment: student.EnrollmentNumber("M-" + id), Active: true}
}

func grades(studentID string, values ...float64) []*activity.Grade {
	out := make([]*activity.Grade, 0, len(values))
	for i, v := range values {
		out = append(out, &activity.Grade{
			ID:         studentID + "-g" + string(rune('a'+i)),
			StudentID:  studentID,
			ActivityID: string(rune('a' + i)),
			Value:      shared.Score(v),
		})
	}
	return out
}

func records(studentID string, present ...bool) []*attendance.Record {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]*attendance.Record, 0, len(present))
	for i, p := range present {
		out = append(out, &attendance.Record{StudentID: studentID, Date: day.AddDate(0, 0, i), Present: p})
	}
	return out
}

func TestAverageGrade(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7.5}, 7.5},
		{"two", []float64{7, 9}, 8},
		{"repeating", []float64{10, 9, 9}, 9.33},
		{"thirds", []float64{6.5, 7, 7}, 6.83},
		{"zeros", []float64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AverageGrade(tt.values), 1e-9)
		})
	}
}

func TestAttendancePoints(t *testing.T) {
	tests := []struct {
		name    string
		present []bool
		want    float64
	}{
		{"empty", nil, 0},
		{"all present", []bool{true, true, true}, 3},
		{"all absent", []bool{false, false, false}, -1.5},
		{"mixed", []bool{true, true, false}, 1.5},
		{"net zero", []bool{true, false, false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AttendancePoints(tt.present), 1e-9)
		})
	}
}

func TestAttendancePoints_MatchesFormula(t *testing.T) {
	for present := 0; present <= 12; present++ {
		for absent := 0; absent <= 12; absent++ {
			flags := make([]bool, 0, present+absent)
			for i := 0; i < present; i++ {
				flags = append(flags, true)
			}
			for i := 0; i < absent; i++ {
				flags = append(flags, false)
			}
			want := shared.Round(float64(present)*1.0+float64(absent)*-0.5, 1)
			assert.InDelta(t, want, AttendancePoints(flags), 1e-9)
		}
	}
}

func TestAttendancePercentage(t *testing.T) {
	assert.Equal(t, 0.0, AttendancePercentage(nil))
	assert.InDelta(t, 66.7, AttendancePercentage([]bool{true, true, false}), 1e-9)
	assert.InDelta(t, 100.0, AttendancePercentage([]bool{true}), 1e-9)
	assert.InDelta(t, 0.0, AttendancePercentage([]bool{false, false}), 1e-9)
	assert.InDelta(t, 33.3, AttendancePercentage([]bool{true, false, false}), 1e-9)
}

func TestMetrics_RoundHalfToEven(t *testing.T) {
	oneOfSixteen := make([]bool, 16)
	oneOfSixteen[0] = true
	assert.Equal(t, 6.2, AttendancePercentage(oneOfSixteen))

	threeOfSixteen := make([]bool, 16)
	copy(threeOfSixteen, []bool{true, true, true})
	assert.Equal(t, 18.8, AttendancePercentage(threeOfSixteen))

	assert.Equal(t, 7.02, AverageGrade([]float64{7.0, 7.0, 7.0, 7.1}))
	assert.Equal(t, 7.04, AverageGrade([]float64{7.0, 7.0, 7.0, 7.14}))
}

func TestTotalScore(t *testing.T) {
	assert.InDelta(t, 9.5, TotalScore(8.0, 1.5), 1e-9)
	assert.InDelta(t, 5.83, TotalScore(6.83, -1.0), 1e-9)
	assert.InDelta(t, 0.0, TotalScore(0, 0), 1e-9)
}

func TestComputeMetrics_Scenario(t *testing.T) {
	m := ComputeMetrics(grades("s1", 7.0, 9.0), records("s1", true, true, false))

	assert.InDelta(t, 8.0, m.AverageGrade, 1e-9)
	assert.InDelta(t, 1.5, m.AttendancePoints, 1e-9)
	assert.InDelta(t, 9.5, m.TotalScore, 1e-9)
	assert.InDelta(t, 66.7, m.AttendancePercentage, 1e-9)
	assert.Equal(t, 2, m.GradeCount)
	assert.Equal(t, 2, m.PresentCount)
}

func TestComputeStandings_Ordering(t *testing.T) {
	roster := []*student.Student{
		newStudent("1", "Carla"),
		newStudent("2", "Ana"),
		newStudent("3", "Bruno"),
		newStudent("4", "Diego"),
		newStudent("5", "ana"),
		newStudent("6", "Eva"),
	}
	g := map[string][]*activity.Grade{
		"1": grades("1", 8),         // total 9.0
		"2": grades("2", 8),         // total 9.0, ties with Carla
		"3": grades("3", 7),         // total 9.0 but lower average
		"4": grades("4", 9.5),       // total 9.5
		"5": grades("5", 8),         // same as Ana, lowercase sorts after
		"6": grades("6", 9.5, 10.0), // best average, two absences drop it to 8.75
	}
	a := map[string][]*attendance.Record{
		"1": records("1", true),
		"2": records("2", true),
		"3": records("3", true, true),
		"5": records("5", true),
		"6": records("6", false, false),
	}

	standings := ComputeStandings(roster, g, a)
	require.Len(t, standings, 6)

	names := make([]string, 0, len(standings))
	for _, s := range standings {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Diego", "Ana", "Carla", "ana", "Bruno", "Eva"}, names)

	for i, s := range standings {
		assert.Equal(t, i+1, s.Position)
	}
	assertOrdered(t, standings)
}

func TestComputeStandings_StudentWithoutRecords(t *testing.T) {
	roster := []*student.Student{newStudent("1", "Zoe"), newStudent("2", "Ana")}

	standings := ComputeStandings(roster, nil, nil)
	require.Len(t, standings, 2)
	assert.Equal(t, "Ana", standings[0].Name)
	assert.Equal(t, Metrics{}, standings[0].Metrics)
	assert.Equal(t, 2, standings[1].Position)
}

func TestComputeStandings_Empty(t *testing.T) {
	assert.Empty(t, ComputeStandings(nil, nil, nil))
	assert.Empty(t, ComputeStandings([]*student.Student{}, map[string][]*activity.Grade{}, nil))
}

func TestComputeStandings_Idempotent(t *testing.T) {
	roster := []*student.Student{newStudent("1", "B"), newStudent("2", "A"), newStudent("3", "C")}
	g := map[string][]*activity.Grade{"1": grades("1", 5, 6), "2": grades("2", 5, 6), "3": grades("3", 10)}
	a := map[string][]*attendance.Record{"3": records("3", false)}

	rosterCopy := append([]*student.Student(nil), roster...)

	first := ComputeStandings(roster, g, a)
	second := ComputeStandings(roster, g, a)
	assert.Equal(t, first, second)
	assert.Equal(t, rosterCopy, roster)
	assert.Len(t, g["1"], 2)
}

func TestComputeStandings_SortedProperty(t *testing.T) {
	roster := make([]*student.Student, 0, 30)
	g := make(map[string][]*activity.Grade)
	a := make(map[string][]*attendance.Record)
	for i := 0; i < 30; i++ {
		id := string(rune('A' + i))
		roster = append(roster, newStudent(id, "Student "+id))
		g[id] = grades(id, float64(i%7), float64((i*3)%11))
		flags := make([]bool, 0, i%5)
		for k := 0; k < i%5; k++ {
			flags = append(flags, (i+k)%2 == 0)
		}
		a[id] = records(id, flags...)
	}

	standings := ComputeStandings(roster, g, a)
	require.Len(t, standings, 30)
	assertOrdered(t, standings)
	for i, s := range standings {
		assert.Equal(t, i+1, s.Position)
	}
}

func assertOrdered(t *testing.T, standings []Standing) {
	t.Helper()
	for i := 0; i+1 < len(standings); i++ {
		a, b := standings[i], standings[i+1]
		switch {
		case a.TotalScore != b.TotalScore:
			assert.Greater(t, a.TotalScore, b.TotalScore)
		case a.AverageGrade != b.AverageGrade:
			assert.Greater(t, a.AverageGrade, b.AverageGrade)
		case a.AttendancePoints != b.AttendancePoints:
			assert.Greater(t, a.AttendancePoints, b.AttendancePoints)
		default:
			assert.LessOrEqual(t, a.Name, b.Name)
		}
	}
}

func TestRankGroup(t *testing.T) {
	members := []*student.Student{newStudent("1", "Caio"), newStudent("2", "Bia"), newStudent("3", "Ari")}
	g := map[string][]*activity.Grade{
		"1": grades("1", 9),
		"2": grades("2", 7),
		"3": grades("3", 8, 6), // same total as Bia, higher average is ignored
	}

	ranked := RankGroup(members, g, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Caio", ranked[0].Name)
	assert.Equal(t, "Ari", ranked[1].Name)
	assert.Equal(t, "Bia", ranked[2].Name)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Position, ranked[1].Position, ranked[2].Position})

	assert.InDelta(t, 7.67, GroupAverage(ranked), 1e-9)
	assert.Equal(t, 0.0, GroupAverage(nil))
}

func TestClassSummary(t *testing.T) {
	assert.Equal(t, Summary{}, ClassSummary(nil))

	s := ClassSummary([]Standing{
		{Metrics: Metrics{TotalScore: 9.5, AttendancePoints: 1.5}},
		{Metrics: Metrics{TotalScore: 7.25, AttendancePoints: -0.5}},
		{Metrics: Metrics{TotalScore: 5, AttendancePoints: 2}},
	})
	assert.Equal(t, 3, s.Students)
	assert.InDelta(t, 7.25, s.MeanTotalScore, 1e-9)
	assert.InDelta(t, 1.0, s.MeanAttendancePoints, 1e-9)
}

func TestActivityAverage(t *testing.T) {
	assert.Equal(t, 0.0, ActivityAverage(nil))
	assert.InDelta(t, 7.33, ActivityAverage(grades("x", 6, 7, 9)), 1e-9)
}

func TestFindAndTop(t *testing.T) {
	standings := []Standing{{StudentID: "a", Position: 1}, {StudentID: "b", Position: 2}}

	s, ok := Find(standings, "b")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Position)

	_, ok = Find(standings, "zzz")
	assert.False(t, ok)

	assert.Len(t, Top(standings, 1), 1)
	assert.Len(t, Top(standings, 0), 2)
	assert.Len(t, Top(standings, 10), 2)
}
