package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/storage"
	"gorm.io/gorm"
)

const (
	msgInvalidBody = "Cuerpo de la solicitud inválido"
	msgValidation  = "Error de validación"
	msgInvalidID   = "ID inválido"
	msgForbidden   = "No tienes permisos para realizar esta acción"
	msgInternal    = "Error interno del servidor"
)

// Deps are the collaborators shared by the resource handlers.
type Deps struct {
	DB     *gorm.DB
	CRM    *crm.Service
	Logger *slog.Logger
	// Verbose puts the underlying error text in 5xx bodies. Off in production.
	Verbose bool
}

type base struct {
	db      *gorm.DB
	crm     *crm.Service
	logger  *slog.Logger
	verbose bool
	now     func() time.Time
}

func newBase(d Deps) base {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := d.CRM
	if svc == nil {
		svc = crm.NewService(d.DB, logger)
	}
	return base{db: d.DB, crm: svc, logger: logger, verbose: d.Verbose, now: time.Now}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dto.Response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, dto.Response{Success: true, Message: message, Data: data})
}

func writeList(w http.ResponseWriter, data any, page *dto.Pagination) {
	writeJSON(w, http.StatusOK, dto.Response{Success: true, Data: data, Pagination: page})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Success: false, Message: message})
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: msgValidation, Details: details})
}

// classify maps a domain or storage error to its status and message. ok is
// false for errors that are not part of the taxonomy.
func classify(err error, notFound string) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, notFound, true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusBadRequest, "Ya existe un registro con esos datos", true

	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest, "El email ya está registrado", true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Credenciales inválidas", true
	case errors.Is(err, auth.ErrInactiveUser):
		return http.StatusForbidden, "Cuenta inactiva. Contacte al administrador", true
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Refresh token inválido o expirado", true
	case errors.Is(err, auth.ErrInvalidResetToken):
		return http.StatusBadRequest, "Token inválido o expirado", true
	case errors.Is(err, auth.ErrRoleNotAllowed):
		return http.StatusBadRequest, "Rol no permitido en el registro", true
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "Usuario no encontrado", true

	case errors.Is(err, crm.ErrLeadAlreadyConverted):
		return http.StatusBadRequest, "El lead ya fue convertido", true
	case errors.Is(err, crm.ErrConversionOnly):
		return http.StatusBadRequest, "Use la conversión para marcar un lead como convertido", true
	case errors.Is(err, crm.ErrPropertyNotFound):
		return http.StatusNotFound, "Propiedad no encontrada", true
	case errors.Is(err, crm.ErrAccountNotFound):
		return http.StatusNotFound, "Cuenta no encontrada", true
	case errors.Is(err, crm.ErrContactNotFound):
		return http.StatusNotFound, "Contacto no encontrado", true
	case errors.Is(err, crm.ErrSelfParent):
		return http.StatusBadRequest, "Una cuenta no puede ser su propia cuenta padre", true
	case errors.Is(err, crm.ErrAccountCycle):
		return http.StatusBadRequest, "La jerarquía de cuentas no puede contener ciclos", true
	case errors.Is(err, crm.ErrRelatedNotFound):
		return http.StatusNotFound, "Entidad relacionada no encontrada", true
	case errors.Is(err, crm.ErrUnknownRelatedType):
		return http.StatusBadRequest, "Tipo de entidad relacionada inválido", true

	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusNotImplemented, "Almacenamiento de archivos no configurado", true
	}
	return 0, "", false
}

// fail writes err using the shared taxonomy. notFound is the message for a
// missing record of the handler's own entity.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if status, message, ok := classify(err, notFound); ok {
		b.logger.Warn(message, "request_id", chimw.GetReqID(r.Context()), "path", r.URL.Path)
		writeFail(w, status, message)
		return
	}

	b.logger.Error("request failed",
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	resp := dto.ErrorResponse{Success: false, Message: msgInternal}
	if b.verbose {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// decode reads a JSON body, writing the 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: msgInvalidBody, Error: err.Error()})
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be omitted.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: msgInvalidBody, Error: err.Error()})
	return false
}

// pathID parses the {id} URL parameter, writing the 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// requireUser checks that id names an existing user, for assignment targets.
func (b *base) requireUser(r *http.Request, id uuid.UUID) error {
	var count int64
	if err := b.db.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}
