package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type ContactRequest struct {
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Mobile     *string `json:"mobile,omitempty"`
	Title      *string `json:"title,omitempty"`
	Department *string `json:"department,omitempty"`

	AccountID *uuid.UUID `json:"accountId,omitempty"`
	IsPrimary *bool      `json:"isPrimary,omitempty"`

	MailingAddress *AddressInput `json:"mailingAddress,omitempty"`
	OtherAddress   *AddressInput `json:"otherAddress,omitempty"`

	DateOfBirth   *time.Time         `json:"dateOfBirth,omitempty"`
	LeadSource    *models.LeadSource `json:"leadSource,omitempty"`
	Description   *string            `json:"description,omitempty"`
	LinkedInURL   *string            `json:"linkedInUrl,omitempty"`
	TwitterHandle *string            `json:"twitterHandle,omitempty"`
	FacebookURL   *string            `json:"facebookUrl,omitempty"`

	AssignedTo        *uuid.UUID          `json:"assignedTo,omitempty"`
	LastContactedDate *time.Time          `json:"lastContactedDate,omitempty"`
	CustomFields      models.CustomFields `json:"customFields,omitempty"`
}

func (r ContactRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		required(errors, "firstName", r.FirstName, "El nombre es requerido")
		required(errors, "lastName", r.LastName, "El apellido es requerido")
		required(errors, "email", r.Email, "El email es requerido")
	}
	maxLength(errors, "firstName", r.FirstName, 50)
	maxLength(errors, "lastName", r.LastName, 50)
	maxLength(errors, "title", r.Title, 100)
	maxLength(errors, "department", r.Department, 100)
	maxLength(errors, "description", r.Description, 2000)

	if r.Email != nil && errors["email"] == "" && !validation.IsValidEmail(strings.TrimSpace(*r.Email)) {
		errors["email"] = "Email inválido"
	}
	if r.LeadSource != nil && !r.LeadSource.Valid() {
		errors["leadSource"] = "Fuente inválida"
	}
	for field, v := range map[string]*string{"linkedInUrl": r.LinkedInURL, "facebookUrl": r.FacebookURL} {
		if v != nil && *v != "" && !validation.IsValidURL(*v) {
			errors[field] = "URL inválida"
		}
	}
	if r.IsPrimary != nil && *r.IsPrimary && create && r.AccountID == nil {
		errors["isPrimary"] = "Un contacto principal requiere una cuenta"
	}

	return errors
}

func (r ContactRequest) ApplyTo(c *models.Contact) {
	setString(&c.FirstName, r.FirstName)
	setString(&c.LastName, r.LastName)
	if r.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	setString(&c.Phone, r.Phone)
	setString(&c.Mobile, r.Mobile)
	setString(&c.Title, r.Title)
	setString(&c.Department, r.Department)
	setOptional(&c.AccountID, r.AccountID)
	setValue(&c.IsPrimary, r.IsPrimary)
	r.MailingAddress.ApplyTo(&c.MailingAddress)
	r.OtherAddress.ApplyTo(&c.OtherAddress)
	setOptional(&c.DateOfBirth, r.DateOfBirth)
	setValue(&c.LeadSource, r.LeadSource)
	setString(&c.Description, r.Description)
	setString(&c.LinkedInURL, r.LinkedInURL)
	setString(&c.TwitterHandle, r.TwitterHandle)
	setString(&c.FacebookURL, r.FacebookURL)
	setOptional(&c.AssignedTo, r.AssignedTo)
	setOptional(&c.LastContactedDate, r.LastContactedDate)
	if r.CustomFields != nil {
		c.CustomFields = r.CustomFields
	}
}

type LinkAccountRequest struct {
	AccountID uuid.UUID `json:"accountId"`
	IsPrimary bool      `json:"isPrimary"`
}

func (r LinkAccountRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AccountID == uuid.Nil {
		errors["accountId"] = "ID de la cuenta requerido"
	}
	return errors
}

// MergeFields are the contact attributes that may be taken from the source.
var MergeFields = []string{
	"firstName", "lastName", "email", "phone", "mobile", "title", "department",
	"accountId", "description", "linkedInUrl", "twitterHandle", "facebookUrl",
	"mailingAddress", "otherAddress", "dateOfBirth", "leadSource",
}

type MergeContactsRequest struct {
	SourceContactID uuid.UUID `json:"sourceContactId"`
	TargetContactID uuid.UUID `json:"targetContactId"`
	FieldsToKeep    []string  `json:"fieldsToKeep,omitempty"`
	MergeActivities *bool     `json:"mergeActivities,omitempty"`
}

func (r MergeContactsRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.SourceContactID == uuid.Nil {
		errors["sourceContactId"] = "ID del contacto origen requerido"
	}
	if r.TargetContactID == uuid.Nil {
		errors["targetContactId"] = "ID del contacto destino requerido"
	}
	if r.SourceContactID != uuid.Nil && r.SourceContactID == r.TargetContactID {
		errors["targetContactId"] = "No se puede fusionar un contacto consigo mismo"
	}
	for _, f := range r.FieldsToKeep {
		if !validation.OneOf(f, MergeFields...) {
			errors["fieldsToKeep"] = "Campo desconocido: " + f
			break
		}
	}
	return errors
}

// ShouldMergeActivities defaults to true.
func (r MergeContactsRequest) ShouldMergeActivities() bool {
	return r.MergeActivities == nil || *r.MergeActivities
}
