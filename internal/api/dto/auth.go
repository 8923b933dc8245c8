package dto

import (
	"strings"
	"time"

	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type RegisterRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	Phone     string      `json:"phone,omitempty"`
	Role      models.Role `json:"role,omitempty"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.LengthBetween(strings.TrimSpace(r.FirstName), 2, 50) {
		errors["firstName"] = "El nombre debe tener entre 2 y 50 caracteres"
	}
	if !validation.LengthBetween(strings.TrimSpace(r.LastName), 2, 50) {
		errors["lastName"] = "El apellido debe tener entre 2 y 50 caracteres"
	}
	if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email inválido"
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if r.Phone != "" && !validation.IsValidPhone(strings.TrimSpace(r.Phone)) {
		errors["phone"] = "Teléfono inválido"
	}
	if r.Role != "" && !r.Role.Valid() {
		errors["role"] = "Rol inválido"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email inválido"
	}
	if r.Password == "" {
		errors["password"] = "La contraseña es requerida"
	}

	return errors
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshTokenRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.RefreshToken == "" {
		errors["refreshToken"] = "Refresh token es requerido"
	}
	return errors
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email inválido"
	}
	return errors
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Token == "" {
		errors["token"] = "Token es requerido"
	}
	if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	return errors
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.CurrentPassword == "" {
		errors["currentPassword"] = "La contraseña actual es requerida"
	}
	if ok, msg := validation.IsValidPassword(r.NewPassword); !ok {
		errors["newPassword"] = msg
	}
	return errors
}

// UserDTO is the public projection of a user.
type UserDTO struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	Status        string  `json:"status"`
	Phone         string  `json:"phone,omitempty"`
	Avatar        string  `json:"avatar,omitempty"`
	EmailVerified bool    `json:"emailVerified"`
	LastLoginAt   *string `json:"lastLoginAt,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:            u.ID.String(),
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Name:          u.FullName(),
		Email:         u.Email,
		Role:          string(u.Role),
		Status:        string(u.Status),
		Phone:         u.Phone,
		Avatar:        u.Avatar,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format(time.RFC3339)
		out.LastLoginAt = &s
	}
	return out
}

type AuthResponse struct {
	User         UserDTO `json:"user"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken,omitempty"`
}
