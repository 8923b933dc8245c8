package handlers

import (
	"net/http"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm/clause"
)

const msgUserNotFound = "Usuario no encontrado"

var userSort = baseSort.with(sortColumns{
	"firstName":   "first_name",
	"lastName":    "last_name",
	"email":       "email",
	"role":        "role",
	"status":      "status",
	"lastLoginAt": "last_login_at",
})

type UserHandler struct {
	base
}

func NewUserHandler(d Deps) *UserHandler {
	return &UserHandler{base: newBase(d)}
}

func usersToDTO(users []models.User) []dto.UserDTO {
	out := make([]dto.UserDTO, len(users))
	for i := range users {
		out[i] = dto.NewUserDTO(&users[i])
	}
	return out
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, userSort)

	db := h.db.WithContext(r.Context()).
		Scopes(searchScope(q.search, "first_name", "last_name", "email"))
	db = q.eq(db, "role", "role")
	db = q.eq(db, "status", "status")

	var users []models.User
	page, err := paginate(db, q, &models.User{}, &users)
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeList(w, usersToDTO(users), page)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeData(w, http.StatusOK, dto.NewUserDTO(&user))
}

// Update handles PUT and PATCH /api/v1/users/{id}. Users edit their own
// profile; role and status are reserved for admins.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	admin := middleware.Can(ctx, auth.PermUsersManage)

	var req dto.UserUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}
	if req.Privileged() && !admin {
		writeFail(w, http.StatusForbidden, "Solo un administrador puede cambiar el rol o el estado")
		return
	}

	db := h.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	before := user.Email
	req.ApplyTo(&user)
	if user.Email != before {
		var taken int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", user.Email, user.ID).Count(&taken).Error; err != nil {
			h.fail(w, r, err, msgUserNotFound)
			return
		}
		if taken > 0 {
			h.fail(w, r, auth.ErrUserExists, msgUserNotFound)
			return
		}
	}

	if err := db.Omit(clause.Associations, "password_hash").Save(&user).Error; err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	h.logger.Info("user updated", "user_id", user.ID, "by", middleware.GetUserID(ctx))
	writeMessage(w, http.StatusOK, "Usuario actualizado correctamente", dto.NewUserDTO(&user))
}

// Delete handles DELETE /api/v1/users/{id}. Users are deactivated, never
// removed, so their records keep valid owners.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id == middleware.GetUserID(r.Context()) {
		writeFail(w, http.StatusBadRequest, "No puedes desactivar tu propia cuenta")
		return
	}

	result := h.db.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", id).Update("status", models.UserStatusInactive)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgUserNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgUserNotFound)
		return
	}

	h.logger.Info("user deactivated", "user_id", id, "by", middleware.GetUserID(r.Context()))
	writeMessage(w, http.StatusOK, "Usuario desactivado correctamente", nil)
}
