package leaderboard

import (
	"sort"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PER-STUDENT METRICS
// ══════════════════════════════════════════════════════════════════════════════

// AverageGrade is the mean of values rounded to 2 places, 0 when empty.
func AverageGrade(values []float64) float64 {
	return shared.Mean(values, 2)
}

// AttendancePoints adds +1 per presence and -0.5 per absence, rounded to 1 place.
func AttendancePoints(present []bool) float64 {
	points := 0.0
	for _, p := range present {
		if p {
			points += attendance.PresentPoints
		} else {
			points += attendance.AbsentPoints
		}
	}
	return shared.Round(points, 1)
}

// AttendancePercentage is present/total*100 rounded to 1 place, 0 when empty.
func AttendancePercentage(present []bool) float64 {
	if len(present) == 0 {
		return 0
	}
	n := 0
	for _, p := range present {
		if p {
			n++
		}
	}
	return shared.Round(float64(n)/float64(len(present))*100, 1)
}

// TotalScore combines average grade and attendance points, rounded to 2 places.
func TotalScore(averageGrade, attendancePoints float64) float64 {
	return shared.Sum(2, averageGrade, attendancePoints)
}

// ComputeMetrics derives every metric from one student's records.
func ComputeMetrics(grades []*activity.Grade, records []*attendance.Record) Metrics {
	values := activity.Values(grades)
	flags := attendance.Flags(records)
	present, _ := attendance.Tally(records)

	avg := AverageGrade(values)
	points := AttendancePoints(flags)
	return Metrics{
		AverageGrade:         avg,
		AttendancePoints:     points,
		AttendancePercentage: AttendancePercentage(flags),
		TotalScore:           TotalScore(avg, points),
		GradeCount:           len(values),
		PresentCount:         present,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// ComputeStandings ranks the roster by total score, then average grade, then
// attendance points (all descending), then name ascending. Positions are
// 1-based and never shared. Inputs are not modified.
func ComputeStandings(
	roster []*student.Student,
	gradesByStudent map[string][]*activity.Grade,
	attendanceByStudent map[string][]*attendance.Record,
) []Standing {
	standings := build(roster, gradesByStudent, attendanceByStudent)

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.AverageGrade != b.AverageGrade {
			return a.AverageGrade > b.AverageGrade
		}
		if a.AttendancePoints != b.AttendancePoints {
			return a.AttendancePoints > b.AttendancePoints
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})

	assignPositions(standings)
	return standings
}

// RankGroup ranks group members by total score descending, then name ascending.
func RankGroup(
	members []*student.Student,
	gradesByStudent map[string][]*activity.Grade,
	attendanceByStudent map[string][]*attendance.Record,
) []Standing {
	standings := build(members, gradesByStudent, attendanceByStudent)

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})

	assignPositions(standings)
	return standings
}

func build(
	students []*student.Student,
	gradesByStudent map[string][]*activity.Grade,
	attendanceByStudent map[string][]*attendance.Record,
) []Standing {
	standings := make([]Standing, 0, len(students))
	for _, s := range students {
		if s == nil {
			continue
		}
		standings = append(standings, Standing{
			StudentID:  s.ID,
			Name:       s.Name,
			Enrollment: s.Enrollment.String(),
			Metrics:    ComputeMetrics(gradesByStudent[s.ID], attendanceByStudent[s.ID]),
		})
	}
	return standings
}

func assignPositions(standings []Standing) {
	for i := range standings {
		standings[i].Position = i + 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATES
// ══════════════════════════════════════════════════════════════════════════════

// ClassSummary averages the totals and attendance points of a class.
func ClassSummary(standings []Standing) Summary {
	n := len(standings)
	if n == 0 {
		return Summary{}
	}
	totals := make([]float64, n)
	points := make([]float64, n)
	for i, s := range standings {
		totals[i] = s.TotalScore
		points[i] = s.AttendancePoints
	}
	return Summary{
		Students:             n,
		MeanTotalScore:       shared.Mean(totals, 2),
		MeanAttendancePoints: shared.Mean(points, 1),
	}
}

// ActivityAverage is the class mean for one activity, rounded to 2 places.
func ActivityAverage(grades []*activity.Grade) float64 {
	return AverageGrade(activity.Values(grades))
}

// GroupAverage is the mean total score of the members, rounded to 2 places.
func GroupAverage(members []Standing) float64 {
	totals := make([]float64, len(members))
	for i, m := range members {
		totals[i] = m.TotalScore
	}
	return shared.Mean(totals, 2)
}
