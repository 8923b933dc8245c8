package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vinq/vinq-crm/internal/database/models"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		perm Permission
		want bool
	}{
		{"admin_bulk_deletes_leads", models.RoleAdmin, PermLeadsBulkDelete, true},
		{"manager_bulk_deletes_leads", models.RoleManager, PermLeadsBulkDelete, true},
		{"agent_cannot_bulk_delete_leads", models.RoleAgent, PermLeadsBulkDelete, false},
		{"user_cannot_assign_leads", models.RoleUser, PermLeadsAssign, false},
		{"agent_writes_opportunities", models.RoleAgent, PermOpportunitiesWrite, true},
		{"user_cannot_write_opportunities", models.RoleUser, PermOpportunitiesWrite, false},
		{"agent_cannot_delete_properties", models.RoleAgent, PermPropertiesDelete, false},
		{"manager_lists_users", models.RoleManager, PermUsersList, true},
		{"manager_cannot_delete_users", models.RoleManager, PermUsersDelete, false},
		{"admin_deletes_users", models.RoleAdmin, PermUsersDelete, true},
		{"manager_lists_only_own_activities", models.RoleManager, PermActivitiesViewAll, false},
		{"manager_sees_team_agenda", models.RoleManager, PermActivitiesViewAgenda, true},
		{"agent_sees_only_own_agenda", models.RoleAgent, PermActivitiesViewAgenda, false},
		{"manager_cannot_delete_others_activities", models.RoleManager, PermActivitiesDeleteAny, false},
		{"admin_deletes_any_activity", models.RoleAdmin, PermActivitiesDeleteAny, true},
		{"unknown_role", models.Role("root"), PermUsersList, false},
		{"unknown_permission", models.RoleAdmin, Permission("nuke"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.role, tt.perm))
		})
	}
}

func TestPermissionsOnlyReferenceKnownRoles(t *testing.T) {
	for perm, roles := range permissions {
		assert.NotEmpty(t, roles, "permission %s has no roles", perm)
		for _, r := range roles {
			assert.True(t, r.Valid(), "permission %s references unknown role %q", perm, r)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secreto123")
	assert.NoError(t, err)
	assert.NotEqual(t, "Secreto123", hash)
	assert.True(t, CheckPassword("Secreto123", hash))
	assert.False(t, CheckPassword("secreto123", hash))
}

func TestResetTokenDigest(t *testing.T) {
	raw, digest, err := newResetToken()
	assert.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, raw, digest)
	assert.Equal(t, digest, hashResetToken(raw))
}
