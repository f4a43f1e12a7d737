package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/application/validation"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/group"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/student"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/logger"
	"github.com/Spinelli666/tabela-gamificacao-alunos/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE / UPDATE GROUP COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateGroupCommand creates a study group without members.
type CreateGroupCommand struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=2000"`
	CreatedBy   string `json:"-" validate:"max=100"`
}

// CreateGroupHandler handles CreateGroupCommand.
type CreateGroupHandler struct {
	groups group.Repository
	deps   Deps
}

// NewCreateGroupHandler creates a new CreateGroupHandler.
func NewCreateGroupHandler(groups group.Repository, deps Deps) *CreateGroupHandler {
	return &CreateGroupHandler{groups: groups, deps: deps.withDefaults()}
}

// Handle creates the group.
func (h *CreateGroupHandler) Handle(ctx context.Context, cmd CreateGroupCommand) (*group.Group, error) {
	if err := validation.Struct("CreateGroup", cmd); err != nil {
		return nil, err
	}

	g, err := group.NewGroup(newID(), cmd.Name, cmd.Description, cmd.CreatedBy, timeutil.Now())
	if err != nil {
		return nil, err
	}

	if err := h.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create_group: %w", err)
	}

	h.deps.Logger.Info("group created", logger.GroupID(g.ID))
	h.deps.Metrics.Mutation("group.created")
	return g, nil
}

// UpdateGroupCommand edits a group. LeaderID "" clears the leader; nil keeps it.
type UpdateGroupCommand struct {
	GroupID     string  `json:"-" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	LeaderID    *string `json:"leader_id"`
	Active      *bool   `json:"active"`
}

// UpdateGroupHandler handles UpdateGroupCommand.
type UpdateGroupHandler struct {
	groups group.Repository
	deps   Deps
}

// NewUpdateGroupHandler creates a new UpdateGroupHandler.
func NewUpdateGroupHandler(groups group.Repository, deps Deps) *UpdateGroupHandler {
	return &UpdateGroupHandler{groups: groups, deps: deps.withDefaults()}
}

// Handle applies the changes. A new leader must already be a member.
func (h *UpdateGroupHandler) Handle(ctx context.Context, cmd UpdateGroupCommand) (*group.Group, error) {
	if err := validation.Struct("UpdateGroup", cmd); err != nil {
		return nil, err
	}

	g, err := h.groups.GetByID(ctx, cmd.GroupID)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	if cmd.Name != nil {
		g.Name = shared.CleanName(*cmd.Name)
	}
	if cmd.Description != nil {
		g.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Active != nil {
		g.Active = *cmd.Active
	}
	if cmd.LeaderID != nil {
		members, err := h.groups.ListGroupMembers(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		if err := g.AssignLeader(*cmd.LeaderID, studentIDs(members), now); err != nil {
			return nil, err
		}
	}
	g.UpdatedAt = now

	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := h.groups.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("update_group: %w", err)
	}

	h.deps.Metrics.Mutation("group.updated")
	return g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIP COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// AddGroupMembersCommand adds students to a group and optionally names a leader
// among the resulting members.
type AddGroupMembersCommand struct {
	GroupID    string   `json:"-" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,max=200,dive,required"`
	LeaderID   string   `json:"leader_id"`
	AddedBy    string   `json:"-" validate:"max=100"`
}

// AddGroupMembersResult reports how many memberships were created.
type AddGroupMembersResult struct {
	Group   *group.Group
	Added   int
	Members []*student.Student
}

// AddGroupMembersHandler handles AddGroupMembersCommand.
type AddGroupMembersHandler struct {
	groups   group.Repository
	students student.Repository
	deps     Deps
}

// NewAddGroupMembersHandler creates a new AddGroupMembersHandler.
func NewAddGroupMembersHandler(groups group.Repository, students student.Repository, deps Deps) *AddGroupMembersHandler {
	return &AddGroupMembersHandler{groups: groups, students: students, deps: deps.withDefaults()}
}

// Handle inserts each membership if absent. Every student must exist; existing
// memberships are kept as they are.
func (h *AddGroupMembersHandler) Handle(ctx context.Context, cmd AddGroupMembersCommand) (*AddGroupMembersResult, error) {
	if err := validation.Struct("AddGroupMembers", cmd); err != nil {
		return nil, err
	}

	g, err := h.groups.GetByID(ctx, cmd.GroupID)
	if err != nil {
		return nil, err
	}

	found, err := h.students.GetByIDs(ctx, cmd.StudentIDs)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(found))
	for _, s := range found {
		known[s.ID] = true
	}
	for _, id := range cmd.StudentIDs {
		if !known[id] {
			return nil, shared.WrapError("group", "AddMembers", shared.ErrNotFound,
				fmt.Sprintf("student %s not found", id), shared.ErrStudentNotFound)
		}
	}

	now := timeutil.Now()
	result := &AddGroupMembersResult{Group: g}
	for _, id := range cmd.StudentIDs {
		created, err := h.groups.AddMember(ctx, group.Membership{
			GroupID:   g.ID,
			StudentID: id,
			AddedBy:   cmd.AddedBy,
			AddedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("add_group_members: %w", err)
		}
		if created {
			result.Added++
		}
	}

	members, err := h.groups.ListGroupMembers(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	result.Members = members

	if cmd.LeaderID != "" && cmd.LeaderID != g.LeaderID {
		if err := g.AssignLeader(cmd.LeaderID, studentIDs(members), now); err != nil {
			return nil, err
		}
		if err := h.groups.Update(ctx, g); err != nil {
			return nil, fmt.Errorf("add_group_members: %w", err)
		}
	}

	h.deps.Logger.Info("group members added", logger.GroupID(g.ID), logger.Count(result.Added))
	h.deps.Metrics.Mutation("group.members_added")
	return result, nil
}

// RemoveGroupMemberCommand removes one student from a group.
type RemoveGroupMemberCommand struct {
	GroupID   string `validate:"required"`
	StudentID string `validate:"required"`
}

// RemoveGroupMemberHandler handles RemoveGroupMemberCommand.
type RemoveGroupMemberHandler struct {
	groups group.Repository
	deps   Deps
}

// NewRemoveGroupMemberHandler creates a new RemoveGroupMemberHandler.
func NewRemoveGroupMemberHandler(groups group.Repository, deps Deps) *RemoveGroupMemberHandler {
	return &RemoveGroupMemberHandler{groups: groups, deps: deps.withDefaults()}
}

// Handle removes the membership. The leader is cleared in the same write
// when the leader is the one leaving.
func (h *RemoveGroupMemberHandler) Handle(ctx context.Context, cmd RemoveGroupMemberCommand) (*group.Group, error) {
	if err := validation.Struct("RemoveGroupMember", cmd); err != nil {
		return nil, err
	}

	g, err := h.groups.GetByID(ctx, cmd.GroupID)
	if err != nil {
		return nil, err
	}

	now := timeutil.Now()
	cleared, err := h.groups.RemoveMember(ctx, g.ID, cmd.StudentID, now)
	if err != nil {
		return nil, fmt.Errorf("remove_group_member: %w", err)
	}
	if cleared {
		g.MemberLeft(cmd.StudentID, now)
		h.deps.Logger.Info("group leader left", logger.GroupID(g.ID), logger.StudentID(cmd.StudentID))
	}

	h.deps.Metrics.Mutation("group.member_removed")
	return g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE GROUP COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteGroupCommand removes a group and its memberships.
type DeleteGroupCommand struct {
	GroupID string `validate:"required"`
}

// DeleteGroupHandler handles DeleteGroupCommand.
type DeleteGroupHandler struct {
	groups group.Repository
	deps   Deps
}

// NewDeleteGroupHandler creates a new DeleteGroupHandler.
func NewDeleteGroupHandler(groups group.Repository, deps Deps) *DeleteGroupHandler {
	return &DeleteGroupHandler{groups: groups, deps: deps.withDefaults()}
}

// Handle deletes the group. Students stay on the roster.
func (h *DeleteGroupHandler) Handle(ctx context.Context, cmd DeleteGroupCommand) error {
	if err := validation.Struct("DeleteGroup", cmd); err != nil {
		return err
	}

	if err := h.groups.Delete(ctx, cmd.GroupID); err != nil {
		return fmt.Errorf("delete_group: %w", err)
	}

	h.deps.Logger.Info("group deleted", logger.GroupID(cmd.GroupID))
	h.deps.changed(ctx, "group.deleted")
	return nil
}

func studentIDs(students []*student.Student) []string {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids
}
