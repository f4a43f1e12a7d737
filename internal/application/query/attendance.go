package query

import (
	"context"
	"sort"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTENDANCE REPORT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceReportQuery selects a day range. Empty bounds default to the
// last 30 days; unparsable bounds fall back to the same window.
type GetAttendanceReportQuery struct {
	From string
	To   string
}

// AttendanceDTO is one record with the student's name.
type AttendanceDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Date        string `json:"date"`
	Present     bool   `json:"present"`
	Notes       string `json:"notes,omitempty"`
	PostedBy    string `json:"posted_by,omitempty"`
}

// AttendanceReport lists the records of a range.
type AttendanceReport struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Records []AttendanceDTO `json:"records"`
	Total   int             `json:"total"`
	Present int             `json:"present"`
	Absent  int             `json:"absent"`
}

// GetAttendanceReportHandler handles GetAttendanceReportQuery.
type GetAttendanceReportHandler struct {
	repos Repositories
}

// NewGetAttendanceReportHandler creates a new GetAttendanceReportHandler.
func NewGetAttendanceReportHandler(repos Repositories) *GetAttendanceReportHandler {
	return &GetAttendanceReportHandler{repos: repos}
}

// Handle returns records ordered by date descending then student name.
func (h *GetAttendanceReportHandler) Handle(ctx context.Context, q GetAttendanceReportQuery) (*AttendanceReport, error) {
	window, err := reportWindow(q)
	if err != nil {
		return nil, err
	}

	records, err := h.repos.Attendance.ListRange(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	everyone, err := h.repos.Students.List(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(everyone))
	for _, s := range everyone {
		names[s.ID] = s.Name
	}

	report := &AttendanceReport{
		From:    timeutil.FormatDate(window.From),
		To:      timeutil.FormatDate(window.To),
		Records: make([]AttendanceDTO, 0, len(records)),
		Total:   len(records),
	}
	for _, r := range records {
		if r.Present {
			report.Present++
		} else {
			report.Absent++
		}
		report.Records = append(report.Records, AttendanceDTO{
			ID:          r.ID,
			StudentID:   r.StudentID,
			StudentName: names[r.StudentID],
			Date:        timeutil.FormatDate(r.Date),
			Present:     r.Present,
			Notes:       r.Notes,
			PostedBy:    r.PostedBy,
		})
	}

	// YYYY-MM-DD sorts chronologically as a string.
	sort.SliceStable(report.Records, func(i, j int) bool {
		a, b := report.Records[i], report.Records[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		return a.StudentName < b.StudentName
	})
	return report, nil
}

// reportWindow resolves the query bounds. A reversed range is a validation error.
func reportWindow(q GetAttendanceReportQuery) (shared.DateRange, error) {
	from, to := timeutil.LastNDays(timeutil.DefaultReportDays)
	if q.From != "" {
		if d, err := timeutil.ParseDate(q.From); err == nil {
			from = d
		}
	}
	if q.To != "" {
		if d, err := timeutil.ParseDate(q.To); err == nil {
			to = d
		}
	}
	return shared.NewDateRange(from, to)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO is a roster entry.
type StudentDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Enrollment string `json:"enrollment"`
	Active     bool   `json:"active"`
}

// ToStudentDTO converts a domain student.
func ToStudentDTO(s *student.Student) StudentDTO {
	return StudentDTO{
		ID:         s.ID,
		Name:       s.Name,
		Email:      s.Email,
		Enrollment: s.Enrollment.String(),
		Active:     s.Active,
	}
}

// ListStudentsHandler returns the roster ordered by name.
type ListStudentsHandler struct {
	repos Repositories
}

// NewListStudentsHandler creates a new ListStudentsHandler.
func NewListStudentsHandler(repos Repositories) *ListStudentsHandler {
	return &ListStudentsHandler{repos: repos}
}

// Handle lists students. activeOnly hides inactive ones.
func (h *ListStudentsHandler) Handle(ctx context.Context, activeOnly bool) ([]StudentDTO, error) {
	students, err := h.repos.Students.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]StudentDTO, 0, len(students))
	for _, s := range students {
		out = append(out, ToStudentDTO(s))
	}
	return out, nil
}
