package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type RelatedInput struct {
	Type models.RelatedType `json:"type"`
	ID   uuid.UUID          `json:"id"`
}

type ReminderInput struct {
	Enabled bool       `json:"enabled"`
	Time    *time.Time `json:"time,omitempty"`
}

type ActivityRequest struct {
	Type        *models.ActivityType   `json:"type,omitempty"`
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Status      *models.ActivityStatus `json:"status,omitempty"`
	Priority    *models.Priority       `json:"priority,omitempty"`
	DueDate     *time.Time             `json:"dueDate,omitempty"`
	Duration    *int                   `json:"duration,omitempty"`
	RelatedTo   *RelatedInput          `json:"relatedTo,omitempty"`
	AssignedTo  *uuid.UUID             `json:"assignedTo,omitempty"`

	CallDetails    *models.CallDetails    `json:"callDetails,omitempty"`
	EmailDetails   *models.EmailDetails   `json:"emailDetails,omitempty"`
	MeetingDetails *models.MeetingDetails `json:"meetingDetails,omitempty"`
	Reminder       *ReminderInput         `json:"reminder,omitempty"`
}

func (r ActivityRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		if r.Type == nil {
			errors["type"] = "El tipo es requerido"
		}
		required(errors, "title", r.Title, "El título es requerido")
		if r.RelatedTo == nil {
			errors["relatedTo"] = "La entidad relacionada es requerida"
		}
	}
	maxLength(errors, "title", r.Title, 200)
	maxLength(errors, "description", r.Description, 5000)

	if r.Type != nil && !r.Type.Valid() {
		errors["type"] = "Tipo inválido"
	}
	if r.Status != nil && !r.Status.Valid() {
		errors["status"] = "Estado inválido"
	}
	if r.Priority != nil && !r.Priority.Valid() {
		errors["priority"] = "Prioridad inválida"
	}
	if r.Duration != nil && *r.Duration < 0 {
		errors["duration"] = "La duración no puede ser negativa"
	}
	if r.RelatedTo != nil {
		if !r.RelatedTo.Type.Valid() {
			errors["relatedTo.type"] = "Tipo de entidad inválido"
		}
		if r.RelatedTo.ID == uuid.Nil {
			errors["relatedTo.id"] = "ID de la entidad requerido"
		}
	}
	if r.CallDetails != nil && r.CallDetails.Outcome != "" && !validation.OneOf(r.CallDetails.Outcome, models.CallOutcomes...) {
		errors["callDetails.outcome"] = "Resultado de llamada inválido"
	}
	if r.EmailDetails != nil {
		for _, addr := range append(append([]string{}, r.EmailDetails.To...), r.EmailDetails.CC...) {
			if !validation.IsValidEmail(addr) {
				errors["emailDetails"] = "Email inválido: " + addr
				break
			}
		}
	}
	if r.MeetingDetails != nil && r.MeetingDetails.MeetingLink != "" && !validation.IsValidURL(r.MeetingDetails.MeetingLink) {
		errors["meetingDetails.meetingLink"] = "URL inválida"
	}
	if r.Reminder != nil && r.Reminder.Enabled && r.Reminder.Time == nil {
		errors["reminder.time"] = "La hora del recordatorio es requerida"
	}

	return errors
}

// ApplyTo stamps the completion date when the status moves to completed.
// Changing the reminder re-arms it.
func (r ActivityRequest) ApplyTo(a *models.Activity, now time.Time) {
	setValue(&a.Type, r.Type)
	setString(&a.Title, r.Title)
	setString(&a.Description, r.Description)
	setValue(&a.Priority, r.Priority)
	setOptional(&a.DueDate, r.DueDate)
	setValue(&a.Duration, r.Duration)
	if r.RelatedTo != nil {
		a.RelatedTo = models.RelatedRef{Kind: r.RelatedTo.Type, EntityID: r.RelatedTo.ID}
	}
	setValue(&a.AssignedTo, r.AssignedTo)
	if r.CallDetails != nil {
		a.CallDetails = r.CallDetails
	}
	if r.EmailDetails != nil {
		a.EmailDetails = r.EmailDetails
	}
	if r.MeetingDetails != nil {
		a.MeetingDetails = r.MeetingDetails
	}
	if r.Reminder != nil {
		a.Reminder = models.Reminder{Enabled: r.Reminder.Enabled, Time: r.Reminder.Time}
	}
	if r.Status != nil {
		if *r.Status == models.ActivityCompleted {
			a.Complete(now)
		} else {
			a.Status = *r.Status
		}
	}
}
