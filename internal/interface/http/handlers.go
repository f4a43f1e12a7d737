package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/command"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":        "Classroom Gradebook API",
		"version":     s.config.Version,
		"description": "Grades, attendance, standings and reward draws for one class",
		"endpoints": map[string]string{
			"health":     "/health",
			"standings":  "/api/v1/standings",
			"students":   "/api/v1/students",
			"attendance": "/api/v1/attendance",
			"rankings":   "/api/v1/groups/rankings",
			"rewards":    "/api/v1/rewards/draws",
		},
	})
}

// handleHealth handles GET /health and GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleFeatures handles GET /api/v1/features so clients can hide disabled
// actions. An empty object means the gate cannot list its flags.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	features := map[string]bool{}
	if lister, ok := s.deps.Features.(featureLister); ok {
		features = lister.Snapshot()
	}
	writeJSON(w, r, http.StatusOK, features)
}

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStandings handles GET /api/v1/standings?limit=N
func (s *Server) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.Standings.Handle(r.Context(), query.GetStandingsQuery{
		Limit: getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{TotalCount: len(res.Standings)})
}

// handleGetStudentStanding handles GET /api/v1/students/{id}/standing
func (s *Server) handleGetStudentStanding(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.StudentStanding.Handle(r.Context(), query.GetStudentStandingQuery{
		StudentID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students?active=true
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.app.Queries.ListStudents.Handle(r.Context(), getQueryParamBool(r, "active"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, students, &ResponseMeta{TotalCount: len(students)})
}

// handleRegisterStudent handles POST /api/v1/students
func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	var cmd command.RegisterStudentCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	st, err := s.app.Commands.RegisterStudent.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.ToStudentDTO(st))
}

// handleUpdateStudent handles PUT /api/v1/students/{id}
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateStudentCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.StudentID = chi.URLParam(r, "id")

	st, err := s.app.Commands.UpdateStudent.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.ToStudentDTO(st))
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Commands.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{StudentID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY & GRADE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateActivity handles POST /api/v1/activities
func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateActivityCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	a, err := s.app.Commands.CreateActivity.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toActivityResponse(a))
}

// handleUpdateActivity handles PUT /api/v1/activities/{id}
func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateActivityCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.ActivityID = chi.URLParam(r, "id")

	a, err := s.app.Commands.UpdateActivity.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toActivityResponse(a))
}

// handleDeleteActivity handles DELETE /api/v1/activities/{id}
func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Commands.DeleteActivity.Handle(r.Context(), command.DeleteActivityCommand{ActivityID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// handleActivityReport handles GET /api/v1/activities/report
func (s *Server) handleActivityReport(w http.ResponseWriter, r *http.Request) {
	reports, err := s.app.Queries.ActivityReport.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, reports, &ResponseMeta{TotalCount: len(reports)})
}

// handleRecordGrade handles POST /api/v1/activities/{id}/grades
func (s *Server) handleRecordGrade(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordGradeCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.ActivityID = chi.URLParam(r, "id")
	cmd.PostedBy = getActor(r)

	g, err := s.app.Commands.RecordGrade.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toGradeResponse(g))
}

// handleUpdateGrade handles PUT /api/v1/activities/{id}/grades/{studentID}
func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateGradeCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.ActivityID = chi.URLParam(r, "id")
	cmd.StudentID = chi.URLParam(r, "studentID")
	cmd.ChangedBy = getActor(r)

	res, err := s.app.Commands.UpdateGrade.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toGradeUpdateResponse(res))
}

// handleDeleteGrade handles DELETE /api/v1/grades/{id}
func (s *Server) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Commands.DeleteGrade.Handle(r.Context(), command.DeleteGradeCommand{GradeID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// handleGradeHistory handles GET /api/v1/grades/{id}/history
func (s *Server) handleGradeHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.GradeHistory.Handle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAttendanceReport handles GET /api/v1/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.AttendanceReport.Handle(r.Context(), query.GetAttendanceReportQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{TotalCount: res.Total})
}

// handleRecordAttendance handles POST /api/v1/attendance
func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordAttendanceCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.PostedBy = getActor(r)

	rec, err := s.app.Commands.RecordAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAttendanceResponse(rec))
}

// handleRecordBulkAttendance handles POST /api/v1/attendance/bulk
func (s *Server) handleRecordBulkAttendance(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordBulkAttendanceCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.PostedBy = getActor(r)

	res, err := s.app.Commands.RecordBulkAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// handleUpdateAttendance handles PUT /api/v1/attendance/{id}
func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateAttendanceCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.RecordID = chi.URLParam(r, "id")

	rec, err := s.app.Commands.UpdateAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAttendanceResponse(rec))
}

// handleDeleteAttendance handles DELETE /api/v1/attendance/{id}
func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Commands.DeleteAttendance.Handle(r.Context(), command.DeleteAttendanceCommand{RecordID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGroupRankings handles GET /api/v1/groups/rankings
func (s *Server) handleGroupRankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := s.app.Queries.GroupRankings.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, rankings, &ResponseMeta{TotalCount: len(rankings)})
}

// handleCreateGroup handles POST /api/v1/groups
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateGroupCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.CreatedBy = getActor(r)

	g, err := s.app.Commands.CreateGroup.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toGroupResponse(g))
}

// handleUpdateGroup handles PUT /api/v1/groups/{id}
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateGroupCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.GroupID = chi.URLParam(r, "id")

	g, err := s.app.Commands.UpdateGroup.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toGroupResponse(g))
}

// handleDeleteGroup handles DELETE /api/v1/groups/{id}
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Commands.DeleteGroup.Handle(r.Context(), command.DeleteGroupCommand{GroupID: id}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// handleAddGroupMembers handles POST /api/v1/groups/{id}/members
func (s *Server) handleAddGroupMembers(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddGroupMembersCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	cmd.GroupID = chi.URLParam(r, "id")
	cmd.AddedBy = getActor(r)

	res, err := s.app.Commands.AddGroupMembers.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMembersResponse(res))
}

// handleRemoveGroupMember handles DELETE /api/v1/groups/{id}/members/{studentID}
func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	g, err := s.app.Commands.RemoveGroupMember.Handle(r.Context(), command.RemoveGroupMemberCommand{
		GroupID:   chi.URLParam(r, "id"),
		StudentID: chi.URLParam(r, "studentID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toGroupResponse(g))
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDrawReward handles POST /api/v1/rewards/draws
func (s *Server) handleDrawReward(w http.ResponseWriter, r *http.Request) {
	var cmd command.DrawRewardCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	res, err := s.app.Commands.DrawReward.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// handleRewardHistory handles GET /api/v1/rewards/draws?page=N
func (s *Server) handleRewardHistory(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.RewardHistory.Handle(r.Context(), query.GetRewardHistoryQuery{
		Page: getQueryParamInt(r, "page", 1),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{
		TotalCount: res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		HasMore:    res.Page < res.TotalPages,
	})
}

// handlePendingRewards handles GET /api/v1/rewards/pending
func (s *Server) handlePendingRewards(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Queries.PendingRewards.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res, &ResponseMeta{TotalCount: len(res.Draws)})
}

// handleRedeemReward handles POST /api/v1/rewards/draws/{id}/redeem
func (s *Server) handleRedeemReward(w http.ResponseWriter, r *http.Request) {
	d, err := s.app.Commands.RedeemReward.Handle(r.Context(), command.RedeemRewardCommand{
		DrawID:     chi.URLParam(r, "id"),
		RedeemedBy: getActor(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDrawResponse(d))
}
