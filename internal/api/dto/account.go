package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type AccountRequest struct {
	Name          *string             `json:"name,omitempty"`
	Website       *string             `json:"website,omitempty"`
	Phone         *string             `json:"phone,omitempty"`
	Email         *string             `json:"email,omitempty"`
	Type          *models.AccountType `json:"type,omitempty"`
	Industry      *string             `json:"industry,omitempty"`
	Size          *string             `json:"size,omitempty"`
	AnnualRevenue *decimal.Decimal    `json:"annualRevenue,omitempty"`
	Employees     *int                `json:"employees,omitempty"`

	BillingAddress  *AddressInput `json:"billingAddress,omitempty"`
	ShippingAddress *AddressInput `json:"shippingAddress,omitempty"`

	ParentAccountID *uuid.UUID `json:"parentAccountId,omitempty"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	Territory       *string    `json:"territory,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	IsActive        *bool      `json:"isActive,omitempty"`

	LinkedInURL   *string `json:"linkedInUrl,omitempty"`
	TwitterHandle *string `json:"twitterHandle,omitempty"`
	FacebookURL   *string `json:"facebookUrl,omitempty"`

	CustomFields models.CustomFields `json:"customFields,omitempty"`
}

func (r AccountRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		required(errors, "name", r.Name, "El nombre es requerido")
	}
	maxLength(errors, "name", r.Name, 200)
	maxLength(errors, "description", r.Description, 2000)

	if r.Email != nil && *r.Email != "" && !validation.IsValidEmail(strings.TrimSpace(*r.Email)) {
		errors["email"] = "Email inválido"
	}
	if r.Website != nil && *r.Website != "" && !validation.IsValidURL(*r.Website) {
		errors["website"] = "URL inválida"
	}
	if r.Type != nil && !r.Type.Valid() {
		errors["type"] = "Tipo inválido"
	}
	if r.Industry != nil && *r.Industry != "" && !validation.OneOf(*r.Industry, models.AccountIndustries...) {
		errors["industry"] = "Industria inválida"
	}
	if r.Size != nil && *r.Size != "" && !validation.OneOf(*r.Size, models.AccountSizes...) {
		errors["size"] = "Tamaño inválido"
	}
	if r.AnnualRevenue != nil && r.AnnualRevenue.IsNegative() {
		errors["annualRevenue"] = "El ingreso anual no puede ser negativo"
	}
	if r.Employees != nil && *r.Employees < 1 {
		errors["employees"] = "El número de empleados debe ser mayor a 0"
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		errors["rating"] = "La calificación debe estar entre 1 y 5"
	}

	return errors
}

// ApplyTo leaves ParentAccountID alone; hierarchy changes go through SetParent.
func (r AccountRequest) ApplyTo(a *models.Account) {
	setString(&a.Name, r.Name)
	setString(&a.Website, r.Website)
	setString(&a.Phone, r.Phone)
	if r.Email != nil {
		a.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	setValue(&a.Type, r.Type)
	setString(&a.Industry, r.Industry)
	setString(&a.Size, r.Size)
	if r.AnnualRevenue != nil {
		a.AnnualRevenue = decimal.NewNullDecimal(*r.AnnualRevenue)
	}
	setValue(&a.Employees, r.Employees)
	r.BillingAddress.ApplyTo(&a.BillingAddress)
	r.ShippingAddress.ApplyTo(&a.ShippingAddress)
	setOptional(&a.AssignedTo, r.AssignedTo)
	setString(&a.Territory, r.Territory)
	setString(&a.Description, r.Description)
	setValue(&a.Rating, r.Rating)
	setValue(&a.IsActive, r.IsActive)
	setString(&a.LinkedInURL, r.LinkedInURL)
	setString(&a.TwitterHandle, r.TwitterHandle)
	setString(&a.FacebookURL, r.FacebookURL)
	if r.CustomFields != nil {
		a.CustomFields = r.CustomFields
	}
}

// SetParentRequest clears the parent when ParentAccountID is null.
type SetParentRequest struct {
	ParentAccountID *uuid.UUID `json:"parentAccountId"`
}
