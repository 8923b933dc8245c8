package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
)

const msgResetRequested = "Si el email existe, recibirás instrucciones para resetear tu contraseña"

type AuthHandler struct {
	base
	authService auth.Authenticator
}

func NewAuthHandler(d Deps, authService auth.Authenticator) *AuthHandler {
	return &AuthHandler{base: newBase(d), authService: authService}
}

func toAuthResponse(resp *auth.AuthResponse) dto.AuthResponse {
	return dto.AuthResponse{
		User:         dto.NewUserDTO(resp.User),
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeMessage(w, http.StatusCreated, "Usuario registrado exitosamente", toAuthResponse(resp))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Login exitoso", toAuthResponse(resp))
}

// RefreshToken handles POST /api/v1/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	token, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"accessToken": token})
}

// ForgotPassword handles POST /api/v1/auth/forgot-password. The answer is the
// same whether or not the e-mail is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	ticket, err := h.authService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	if ticket != nil {
		writeMessage(w, http.StatusOK, msgResetRequested, ticket)
		return
	}
	writeMessage(w, http.StatusOK, msgResetRequested, nil)
}

// ResetPassword handles POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contraseña restablecida exitosamente", nil)
}

// ChangePassword handles PUT /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	err := h.authService.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.fail(w, r, err, msgUserNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contraseña actualizada exitosamente", nil)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeFail(w, http.StatusUnauthorized, "Usuario no autenticado")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": dto.NewUserDTO(user)})
}

// Logout handles POST /api/v1/auth/logout. Tokens are discarded client-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("user logged out", slog.String("email", middleware.GetUserEmail(r.Context())))
	writeMessage(w, http.StatusOK, "Logout exitoso", nil)
}
