package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

const budgetRangeMessage = "El presupuesto máximo debe ser mayor o igual al mínimo"

// LeadRequest serves both create and partial update; nil fields are left alone.
type LeadRequest struct {
	FirstName *string            `json:"firstName,omitempty"`
	LastName  *string            `json:"lastName,omitempty"`
	Email     *string            `json:"email,omitempty"`
	Phone     *string            `json:"phone,omitempty"`
	Mobile    *string            `json:"mobile,omitempty"`
	Company   *string            `json:"company,omitempty"`
	Title     *string            `json:"title,omitempty"`
	Industry  *string            `json:"industry,omitempty"`
	Status    *models.LeadStatus `json:"status,omitempty"`
	Source    *models.LeadSource `json:"source,omitempty"`
	Rating    *models.LeadRating `json:"rating,omitempty"`
	Score     *int               `json:"score,omitempty"`
	Address   *AddressInput      `json:"address,omitempty"`

	AssignedTo       *uuid.UUID       `json:"assignedTo,omitempty"`
	PropertyInterest []string         `json:"propertyInterest,omitempty"`
	BudgetMin        *decimal.Decimal `json:"budgetMin,omitempty"`
	BudgetMax        *decimal.Decimal `json:"budgetMax,omitempty"`
	Notes            *string          `json:"notes,omitempty"`

	CustomFields      models.CustomFields `json:"customFields,omitempty"`
	LastContactedDate *time.Time          `json:"lastContactedDate,omitempty"`
}

func (r LeadRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		required(errors, "firstName", r.FirstName, "El nombre es requerido")
		required(errors, "lastName", r.LastName, "El apellido es requerido")
		required(errors, "email", r.Email, "El email es requerido")
		if r.Source == nil {
			errors["source"] = "La fuente del lead es requerida"
		}
	}
	maxLength(errors, "firstName", r.FirstName, 50)
	maxLength(errors, "lastName", r.LastName, 50)
	maxLength(errors, "company", r.Company, 100)
	maxLength(errors, "title", r.Title, 100)
	maxLength(errors, "notes", r.Notes, 2000)

	if r.Email != nil && errors["email"] == "" && !validation.IsValidEmail(strings.TrimSpace(*r.Email)) {
		errors["email"] = "Email inválido"
	}
	if r.Status != nil {
		switch {
		case !r.Status.Valid():
			errors["status"] = "Estado inválido"
		case *r.Status == models.LeadStatusConverted:
			errors["status"] = "Use la conversión para marcar un lead como convertido"
		}
	}
	if r.Source != nil && !r.Source.Valid() {
		errors["source"] = "Fuente inválida"
	}
	if r.Rating != nil && !r.Rating.Valid() {
		errors["rating"] = "Calificación inválida"
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 100) {
		errors["score"] = "El puntaje debe estar entre 0 y 100"
	}
	if r.BudgetMin != nil && r.BudgetMin.IsNegative() {
		errors["budgetMin"] = "El presupuesto no puede ser negativo"
	}
	if r.BudgetMax != nil && r.BudgetMax.IsNegative() {
		errors["budgetMax"] = "El presupuesto no puede ser negativo"
	}
	if r.BudgetMin != nil && r.BudgetMax != nil && r.BudgetMax.LessThan(*r.BudgetMin) {
		errors["budgetMax"] = budgetRangeMessage
	}

	return errors
}

func (r LeadRequest) ApplyTo(l *models.Lead) {
	setString(&l.FirstName, r.FirstName)
	setString(&l.LastName, r.LastName)
	if r.Email != nil {
		l.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	setString(&l.Phone, r.Phone)
	setString(&l.Mobile, r.Mobile)
	setString(&l.Company, r.Company)
	setString(&l.Title, r.Title)
	setString(&l.Industry, r.Industry)
	setValue(&l.Status, r.Status)
	setValue(&l.Source, r.Source)
	setValue(&l.Rating, r.Rating)
	setValue(&l.Score, r.Score)
	r.Address.ApplyTo(&l.Address)
	setOptional(&l.AssignedTo, r.AssignedTo)
	if r.PropertyInterest != nil {
		l.PropertyInterest = r.PropertyInterest
	}
	if r.BudgetMin != nil {
		l.BudgetMin = decimal.NewNullDecimal(*r.BudgetMin)
	}
	if r.BudgetMax != nil {
		l.BudgetMax = decimal.NewNullDecimal(*r.BudgetMax)
	}
	setString(&l.Notes, r.Notes)
	if r.CustomFields != nil {
		l.CustomFields = r.CustomFields
	}
	setOptional(&l.LastContactedDate, r.LastContactedDate)
}

// BudgetError is the details map for a lead whose merged budget is inverted.
func BudgetError() map[string]string {
	return map[string]string{"budgetMax": budgetRangeMessage}
}

type ConvertLeadRequest struct {
	CreateContact bool                     `json:"createContact"`
	CreateAccount bool                     `json:"createAccount"`
	CreateDeal    bool                     `json:"createDeal"`
	AccountName   string                   `json:"accountName,omitempty"`
	DealAmount    *decimal.Decimal         `json:"dealAmount,omitempty"`
	DealStage     *models.OpportunityStage `json:"dealStage,omitempty"`
	DealCloseDate *time.Time               `json:"dealCloseDate,omitempty"`
	PropertyID    *uuid.UUID               `json:"propertyId,omitempty"`
}

func (r ConvertLeadRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.DealAmount != nil && r.DealAmount.IsNegative() {
		errors["dealAmount"] = "El monto no puede ser negativo"
	}
	if r.DealStage != nil && !r.DealStage.Valid() {
		errors["dealStage"] = "Etapa inválida"
	}
	if r.CreateDeal {
		if r.PropertyID == nil || *r.PropertyID == uuid.Nil {
			errors["propertyId"] = "La propiedad es requerida para crear la oportunidad"
		}
		if r.DealAmount == nil {
			errors["dealAmount"] = "El monto es requerido para crear la oportunidad"
		}
	}
	return errors
}
