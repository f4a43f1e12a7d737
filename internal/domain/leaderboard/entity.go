// Package leaderboard derives class standings from grades and attendance.
// Everything here is a pure function over caller-supplied records: no I/O,
// no shared state, safe for concurrent use.
package leaderboard

import (
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics are the derived per-student numbers.
type Metrics struct {
	AverageGrade         float64 `json:"average_grade"`
	AttendancePoints     float64 `json:"attendance_points"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	TotalScore           float64 `json:"total_score"`
	GradeCount           int     `json:"grade_count"`
	PresentCount         int     `json:"present_count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STANDING
// ══════════════════════════════════════════════════════════════════════════════

// Standing is one row of a ranked list.
type Standing struct {
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Enrollment string `json:"enrollment"`
	Metrics
	Position int `json:"position"`
}

// String is a compact form for logs.
func (s Standing) String() string {
	return fmt.Sprintf("#%d %s (total=%.2f avg=%.2f pts=%.1f)",
		s.Position, s.Name, s.TotalScore, s.AverageGrade, s.AttendancePoints)
}

// Find returns the standing of a student.
func Find(standings []Standing, studentID string) (Standing, bool) {
	for _, s := range standings {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return Standing{}, false
}

// Top returns at most n leading entries.
func Top(standings []Standing, n int) []Standing {
	if n <= 0 || n >= len(standings) {
		return standings
	}
	return standings[:n]
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary aggregates a class.
type Summary struct {
	Students             int     `json:"students"`
	MeanTotalScore       float64 `json:"mean_total_score"`
	MeanAttendancePoints float64 `json:"mean_attendance_points"`
}
