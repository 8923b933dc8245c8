package dto

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

// Response is the success envelope shared by every endpoint.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type PaginationParams struct {
	Page  int
	Limit int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p *PaginationParams) Result(total int64) *Pagination {
	pages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		pages++
	}
	return &Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (r BulkDeleteRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.IDs) == 0 {
		errors["ids"] = "IDs requeridos"
	}
	return errors
}

type AssignRequest struct {
	AssignedTo uuid.UUID `json:"assignedTo"`
}

func (r AssignRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AssignedTo == uuid.Nil {
		errors["assignedTo"] = "ID del usuario requerido"
	}
	return errors
}

// AddressInput patches an address block field by field.
type AddressInput struct {
	Street  *string `json:"street,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	ZipCode *string `json:"zipCode,omitempty"`
	Country *string `json:"country,omitempty"`
}

func (a *AddressInput) ApplyTo(dst *models.Address) {
	if a == nil {
		return
	}
	setString(&dst.Street, a.Street)
	setString(&dst.City, a.City)
	setString(&dst.State, a.State)
	setString(&dst.ZipCode, a.ZipCode)
	setString(&dst.Country, a.Country)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = validation.CleanString(*v)
	}
}

func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// setOptional copies the pointer itself, for nullable columns.
func setOptional[T any](dst **T, v *T) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

func required(errors map[string]string, field string, v *string, message string) {
	if v == nil || strings.TrimSpace(*v) == "" {
		errors[field] = message
	}
}

func maxLength(errors map[string]string, field string, v *string, max int) {
	if v != nil && len([]rune(*v)) > max {
		errors[field] = fmt.Sprintf("No puede exceder %d caracteres", max)
	}
}
