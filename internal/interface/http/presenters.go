package http

import (
	"time"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/command"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/query"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/activity"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/attendance"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/reward"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE BODIES
// Domain entities carry no JSON tags; these types fix the wire format.
// ══════════════════════════════════════════════════════════════════════════════

type activityResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	MaxValue    float64   `json:"max_value"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toActivityResponse(a *activity.Activity) activityResponse {
	resp := activityResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		MaxValue:    a.MaxValue.Float64(),
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.DueDate != nil {
		resp.DueDate = timeutil.FormatDate(*a.DueDate)
	}
	return resp
}

type gradeResponse struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ActivityID string    `json:"activity_id"`
	Value      float64   `json:"value"`
	Notes      string    `json:"notes,omitempty"`
	PostedBy   string    `json:"posted_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toGradeResponse(g *activity.Grade) gradeResponse {
	return gradeResponse{
		ID:         g.ID,
		StudentID:  g.StudentID,
		ActivityID: g.ActivityID,
		Value:      g.Value.Float64(),
		Notes:      g.Notes,
		PostedBy:   g.PostedBy,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

type gradeUpdateResponse struct {
	Grade  gradeResponse         `json:"grade"`
	Change *query.GradeChangeDTO `json:"change,omitempty"`
}

func toGradeUpdateResponse(res *command.UpdateGradeResult) gradeUpdateResponse {
	resp := gradeUpdateResponse{Grade: toGradeResponse(res.Grade)}
	if c := res.Change; c != nil {
		resp.Change = &query.GradeChangeDTO{
			ID:        c.ID,
			OldValue:  c.OldValue.Float64(),
			NewValue:  c.NewValue.Float64(),
			Reason:    c.Reason,
			ChangedBy: c.ChangedBy,
			ChangedAt: c.ChangedAt,
		}
	}
	return resp
}

type attendanceResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Present   bool      `json:"present"`
	Notes     string    `json:"notes,omitempty"`
	PostedBy  string    `json:"posted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAttendanceResponse(rec *attendance.Record) attendanceResponse {
	return attendanceResponse{
		ID:        rec.ID,
		StudentID: rec.StudentID,
		Date:      timeutil.FormatDate(rec.Date),
		Present:   rec.Present,
		Notes:     rec.Notes,
		PostedBy:  rec.PostedBy,
		CreatedAt: rec.CreatedAt,
	}
}

type groupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LeaderID    string    `json:"leader_id,omitempty"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toGroupResponse(g *group.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		LeaderID:    g.LeaderID,
		Active:      g.Active,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

type membersResponse struct {
	Group   groupResponse      `json:"group"`
	Added   int                `json:"added"`
	Members []query.StudentDTO `json:"members"`
}

func toMembersResponse(res *command.AddGroupMembersResult) membersResponse {
	return membersResponse{
		Group:   toGroupResponse(res.Group),
		Added:   res.Added,
		Members: toStudentDTOs(res.Members),
	}
}

func toStudentDTOs(students []*student.Student) []query.StudentDTO {
	out := make([]query.StudentDTO, 0, len(students))
	for _, s := range students {
		out = append(out, query.ToStudentDTO(s))
	}
	return out
}

func toDrawResponse(d *reward.Draw) query.DrawDTO {
	return query.DrawDTO{
		ID:         d.ID,
		StudentID:  d.StudentID,
		Category:   d.Category,
		Label:      d.Category.Label(),
		Tier:       d.Category.Tier(),
		Roll:       d.Roll,
		ValueCents: d.Category.ValueCents(),
		DrawnAt:    d.DrawnAt,
		Redeemed:   d.Redeemed,
		RedeemedAt: d.RedeemedAt,
		RedeemedBy: d.RedeemedBy,
	}
}
