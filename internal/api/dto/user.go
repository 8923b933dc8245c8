package dto

import (
	"strings"

	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

// UserUpdateRequest never carries a password; that goes through change-password.
type UserUpdateRequest struct {
	FirstName *string            `json:"firstName,omitempty"`
	LastName  *string            `json:"lastName,omitempty"`
	Email     *string            `json:"email,omitempty"`
	Phone     *string            `json:"phone,omitempty"`
	Avatar    *string            `json:"avatar,omitempty"`
	Role      *models.Role       `json:"role,omitempty"`
	Status    *models.UserStatus `json:"status,omitempty"`
}

func (r UserUpdateRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.FirstName != nil && !validation.LengthBetween(strings.TrimSpace(*r.FirstName), 2, 50) {
		errors["firstName"] = "El nombre debe tener entre 2 y 50 caracteres"
	}
	if r.LastName != nil && !validation.LengthBetween(strings.TrimSpace(*r.LastName), 2, 50) {
		errors["lastName"] = "El apellido debe tener entre 2 y 50 caracteres"
	}
	if r.Email != nil && !validation.IsValidEmail(strings.TrimSpace(*r.Email)) {
		errors["email"] = "Email inválido"
	}
	if r.Phone != nil && *r.Phone != "" && !validation.IsValidPhone(strings.TrimSpace(*r.Phone)) {
		errors["phone"] = "Teléfono inválido"
	}
	if r.Avatar != nil && *r.Avatar != "" && !validation.IsValidURL(*r.Avatar) {
		errors["avatar"] = "URL inválida"
	}
	if r.Role != nil && !r.Role.Valid() {
		errors["role"] = "Rol inválido"
	}
	if r.Status != nil && !r.Status.Valid() {
		errors["status"] = "Estado inválido"
	}

	return errors
}

// Privileged reports whether the request touches admin-only fields.
func (r UserUpdateRequest) Privileged() bool {
	return r.Role != nil || r.Status != nil
}

func (r UserUpdateRequest) ApplyTo(u *models.User) {
	setString(&u.FirstName, r.FirstName)
	setString(&u.LastName, r.LastName)
	if r.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	setString(&u.Phone, r.Phone)
	setString(&u.Avatar, r.Avatar)
	setValue(&u.Role, r.Role)
	setValue(&u.Status, r.Status)
}
