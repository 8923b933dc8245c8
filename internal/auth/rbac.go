package auth

import "github.com/vinq/vinq-crm/internal/database/models"

// Permission names an operation that is gated by role.
type Permission string

const (
	PermLeadsAssign     Permission = "leads:assign"
	PermLeadsBulkDelete Permission = "leads:bulk_delete"

	PermContactsDelete     Permission = "contacts:delete"
	PermContactsBulkDelete Permission = "contacts:bulk_delete"
	PermContactsAssign     Permission = "contacts:assign"
	PermContactsMerge      Permission = "contacts:merge"

	PermAccountsDelete     Permission = "accounts:delete"
	PermAccountsBulkDelete Permission = "accounts:bulk_delete"
	PermAccountsAssign     Permission = "accounts:assign"

	PermOpportunitiesWrite   Permission = "opportunities:write"
	PermOpportunitiesDelete  Permission = "opportunities:delete"
	PermOpportunitiesViewAll Permission = "opportunities:view_all"

	PermPropertiesWrite  Permission = "properties:write"
	PermPropertiesDelete Permission = "properties:delete"

	PermActivitiesViewAll    Permission = "activities:view_all"
	PermActivitiesViewAgenda Permission = "activities:view_agenda"
	PermActivitiesEditAny    Permission = "activities:edit_any"
	PermActivitiesDeleteAny  Permission = "activities:delete_any"

	PermUsersList   Permission = "users:list"
	PermUsersView   Permission = "users:view"
	PermUsersManage Permission = "users:manage"
	PermUsersDelete Permission = "users:delete"
)

var (
	adminOnly         = []models.Role{models.RoleAdmin}
	adminManager      = []models.Role{models.RoleAdmin, models.RoleManager}
	adminManagerAgent = []models.Role{models.RoleAdmin, models.RoleManager, models.RoleAgent}
)

// permissions is the allow-list; anything absent is denied.
var permissions = map[Permission][]models.Role{
	PermLeadsAssign:     adminManager,
	PermLeadsBulkDelete: adminManager,

	PermContactsDelete:     adminManager,
	PermContactsBulkDelete: adminManager,
	PermContactsAssign:     adminManager,
	PermContactsMerge:      adminManager,

	PermAccountsDelete:     adminManager,
	PermAccountsBulkDelete: adminManager,
	PermAccountsAssign:     adminManager,

	PermOpportunitiesWrite:   adminManagerAgent,
	PermOpportunitiesDelete:  adminManager,
	PermOpportunitiesViewAll: adminManager,

	PermPropertiesWrite:  adminManagerAgent,
	PermPropertiesDelete: adminManager,

	// The list is narrowed for managers; today and pending are not.
	PermActivitiesViewAll:    adminOnly,
	PermActivitiesViewAgenda: adminManager,
	PermActivitiesEditAny:    adminManager,
	PermActivitiesDeleteAny:  adminOnly,

	PermUsersList:   adminManager,
	PermUsersView:   adminManager,
	PermUsersManage: adminOnly,
	PermUsersDelete: adminOnly,
}

// Authorize reports whether role may perform p.
func Authorize(role models.Role, p Permission) bool {
	for _, r := range permissions[p] {
		if r == role {
			return true
		}
	}
	return false
}
