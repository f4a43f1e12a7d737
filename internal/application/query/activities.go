package query

import (
	"context"
	"sort"
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/leaderboard"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACTIVITY REPORT QUERY
// Grade sheet of every active activity, newest activity first.
// ══════════════════════════════════════════════════════════════════════════════

// GradeDTO is one posted grade with the student's name.
type GradeDTO struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Value       float64   `json:"value"`
	Notes       string    `json:"notes,omitempty"`
	PostedBy    string    `json:"posted_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StudentRef identifies a student in reports.
type StudentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityReport is the grade sheet of one activity.
type ActivityReport struct {
	ActivityID string       `json:"activity_id"`
	Name       string       `json:"name"`
	DueDate    string       `json:"due_date,omitempty"`
	MaxValue   float64      `json:"max_value"`
	Grades     []GradeDTO   `json:"grades"`
	Average    float64      `json:"average"`
	Count      int          `json:"count"`
	Missing    []StudentRef `json:"missing"`
}

// GetActivityReportHandler builds the grade sheets.
type GetActivityReportHandler struct {
	repos Repositories
}

// NewGetActivityReportHandler creates a new GetActivityReportHandler.
func NewGetActivityReportHandler(repos Repositories) *GetActivityReportHandler {
	return &GetActivityReportHandler{repos: repos}
}

// Handle returns one report per active activity. Grades are ordered by value
// descending then student name; Missing lists active students without a grade.
func (h *GetActivityReportHandler) Handle(ctx context.Context) ([]ActivityReport, error) {
	activities, err := h.repos.Activities.List(ctx, true)
	if err != nil {
		return nil, err
	}

	everyone, err := h.repos.Students.List(ctx, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*student.Student, len(everyone))
	for _, s := range everyone {
		byID[s.ID] = s
	}

	reports := make([]ActivityReport, 0, len(activities))
	for _, a := range activities {
		grades, err := h.repos.Grades.ListByActivity(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, buildActivityReport(a, grades, everyone, byID))
	}
	return reports, nil
}

func buildActivityReport(
	a *activity.Activity,
	grades []*activity.Grade,
	roster []*student.Student,
	byID map[string]*student.Student,
) ActivityReport {
	report := ActivityReport{
		ActivityID: a.ID,
		Name:       a.Name,
		MaxValue:   a.MaxValue.Float64(),
		Grades:     make([]GradeDTO, 0, len(grades)),
		Average:    leaderboard.ActivityAverage(grades),
		Count:      len(grades),
		Missing:    []StudentRef{},
	}
	if a.DueDate != nil {
		report.DueDate = timeutil.FormatDate(*a.DueDate)
	}

	graded := make(map[string]bool, len(grades))
	for _, g := range grades {
		graded[g.StudentID] = true
		dto := GradeDTO{
			ID:        g.ID,
			StudentID: g.StudentID,
			Value:     g.Value.Float64(),
			Notes:     g.Notes,
			PostedBy:  g.PostedBy,
			UpdatedAt: g.UpdatedAt,
		}
		if s, ok := byID[g.StudentID]; ok {
			dto.StudentName = s.Name
		}
		report.Grades = append(report.Grades, dto)
	}
	sort.SliceStable(report.Grades, func(i, j int) bool {
		a, b := report.Grades[i], report.Grades[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.StudentName < b.StudentName
	})

	// roster is ordered by name
	for _, s := range roster {
		if s.Active && !graded[s.ID] {
			report.Missing = append(report.Missing, StudentRef{ID: s.ID, Name: s.Name})
		}
	}
	return report
}

// ══════════════════════════════════════════════════════════════════════════════
// GET GRADE HISTORY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GradeChangeDTO is one history entry.
type GradeChangeDTO struct {
	ID        string    `json:"id"`
	OldValue  float64   `json:"old_value"`
	NewValue  float64   `json:"new_value"`
	Reason    string    `json:"reason"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// GradeHistoryResult is a grade with its change log, newest first.
type GradeHistoryResult struct {
	GradeID    string           `json:"grade_id"`
	StudentID  string           `json:"student_id"`
	ActivityID string           `json:"activity_id"`
	Value      float64          `json:"value"`
	Changes    []GradeChangeDTO `json:"changes"`
}

// GetGradeHistoryHandler returns the change log of a grade.
type GetGradeHistoryHandler struct {
	repos Repositories
}

// NewGetGradeHistoryHandler creates a new GetGradeHistoryHandler.
func NewGetGradeHistoryHandler(repos Repositories) *GetGradeHistoryHandler {
	return &GetGradeHistoryHandler{repos: repos}
}

// Handle fails with ErrGradeNotFound when the grade does not exist.
func (h *GetGradeHistoryHandler) Handle(ctx context.Context, gradeID string) (*GradeHistoryResult, error) {
	g, err := h.repos.Grades.GetGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}

	changes, err := h.repos.Grades.History(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	result := &GradeHistoryResult{
		GradeID:    g.ID,
		StudentID:  g.StudentID,
		ActivityID: g.ActivityID,
		Value:      g.Value.Float64(),
		Changes:    make([]GradeChangeDTO, 0, len(changes)),
	}
	for _, c := range changes {
		result.Changes = append(result.Changes, GradeChangeDTO{
			ID:        c.ID,
			OldValue:  c.OldValue.Float64(),
			NewValue:  c.NewValue.Float64(),
			Reason:    c.Reason,
			ChangedBy: c.ChangedBy,
			ChangedAt: c.ChangedAt,
		})
	}
	return result, nil
}
