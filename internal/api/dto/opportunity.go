package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

// OpportunityRequest does not carry probability; it follows the stage.
type OpportunityRequest struct {
	Name              *string                  `json:"name,omitempty"`
	LeadID            *uuid.UUID               `json:"client,omitempty"`
	PropertyID        *uuid.UUID               `json:"property,omitempty"`
	AccountID         *uuid.UUID               `json:"accountId,omitempty"`
	ContactID         *uuid.UUID               `json:"contactId,omitempty"`
	Stage             *models.OpportunityStage `json:"stage,omitempty"`
	Value             *decimal.Decimal         `json:"value,omitempty"`
	Currency          *string                  `json:"currency,omitempty"`
	ExpectedCloseDate *time.Time               `json:"expectedCloseDate,omitempty"`
	AssignedTo        *uuid.UUID               `json:"assignedTo,omitempty"`
	Notes             *string                  `json:"notes,omitempty"`
}

func (r OpportunityRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		required(errors, "name", r.Name, "El nombre de la oportunidad es requerido")
		if r.LeadID == nil || *r.LeadID == uuid.Nil {
			errors["client"] = "El cliente es requerido"
		}
		if r.PropertyID == nil || *r.PropertyID == uuid.Nil {
			errors["property"] = "La propiedad es requerida"
		}
		if r.Value == nil {
			errors["value"] = "El valor es requerido"
		}
	}
	maxLength(errors, "name", r.Name, 200)
	maxLength(errors, "notes", r.Notes, 2000)

	if r.Stage != nil && !r.Stage.Valid() {
		errors["stage"] = "Etapa inválida"
	}
	if r.Value != nil && r.Value.IsNegative() {
		errors["value"] = "El valor no puede ser negativo"
	}
	if r.Currency != nil && !validation.IsValidCurrency(strings.ToUpper(strings.TrimSpace(*r.Currency))) {
		errors["currency"] = "Moneda inválida"
	}

	return errors
}

// ApplyTo does not touch the stage; callers use Opportunity.ApplyStage.
func (r OpportunityRequest) ApplyTo(o *models.Opportunity) {
	setString(&o.Name, r.Name)
	setValue(&o.LeadID, r.LeadID)
	setOptional(&o.PropertyID, r.PropertyID)
	setOptional(&o.AccountID, r.AccountID)
	setOptional(&o.ContactID, r.ContactID)
	setValue(&o.Value, r.Value)
	if r.Currency != nil {
		o.Currency = strings.ToUpper(strings.TrimSpace(*r.Currency))
	}
	setOptional(&o.ExpectedCloseDate, r.ExpectedCloseDate)
	setValue(&o.AssignedTo, r.AssignedTo)
	setString(&o.Notes, r.Notes)
}

type StageRequest struct {
	Stage models.OpportunityStage `json:"stage"`
}

func (r StageRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !r.Stage.Valid() {
		errors["stage"] = "Etapa inválida"
	}
	return errors
}

// AddActivityRequest logs an activity against an opportunity.
type AddActivityRequest struct {
	Type        models.ActivityType `json:"type"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description"`
	Date        *time.Time          `json:"date,omitempty"`
}

func (r AddActivityRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !r.Type.Valid() {
		errors["type"] = "Tipo de actividad inválido"
	}
	if strings.TrimSpace(r.Description) == "" {
		errors["description"] = "La descripción es requerida"
	}
	return errors
}
