package domain

import (
	"strconv"
	"strings"
)

// Owner is the caller's view of a scope: the personal space of UserID, or
// the team TeamID that UserID belongs to.
type Owner struct {
	UserID string
	TeamID uint
	Role   string
}

// Personal returns the personal scope of a user.
func Personal(userID string) Owner {
	return Owner{UserID: userID}
}

// TeamScope returns the scope of a team as seen by one of its members.
func TeamScope(teamID uint, userID, role string) Owner {
	return Owner{UserID: userID, TeamID: teamID, Role: role}
}

// IsTeam reports whether the scope belongs to a team.
func (o Owner) IsTeam() bool { return o.TeamID != 0 }

// IsAdmin reports whether the caller administers the team scope. Personal
// scopes are always administered by their owner.
func (o Owner) IsAdmin() bool { return !o.IsTeam() || o.Role == RoleAdmin }

// TeamIDPtr returns the team id for nullable columns.
func (o Owner) TeamIDPtr() *uint {
	if !o.IsTeam() {
		return nil
	}
	id := o.TeamID
	return &id
}

// ScopeKey is the value stored in scope_key columns.
func (o Owner) ScopeKey() string {
	if o.IsTeam() {
		return TeamScopeKey(o.TeamID)
	}
	return UserScopeKey(o.UserID)
}

// Label prefixes resource names in messages ("Team task not found").
func (o Owner) Label(resource string) string {
	if o.IsTeam() {
		return "Team " + strings.ToLower(resource)
	}
	return resource
}

// UserScopeKey is the scope key of a personal space.
func UserScopeKey(userID string) string { return "user:" + userID }

// TeamScopeKey is the scope key of a team.
func TeamScopeKey(teamID uint) string { return "team:" + strconv.FormatUint(uint64(teamID), 10) }

// Team roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
