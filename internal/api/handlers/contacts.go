package handlers

import (
	"fmt"
	"net/http"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
)

const msgContactNotFound = "Contacto no encontrado"

var contactSort = baseSort.with(sortColumns{
	"firstName":         "first_name",
	"lastName":          "last_name",
	"fullName":          "full_name",
	"email":             "email",
	"title":             "title",
	"leadSource":        "lead_source",
	"lastContactedDate": "last_contacted_date",
})

type ContactHandler struct {
	base
}

func NewContactHandler(d Deps) *ContactHandler {
	return &ContactHandler{base: newBase(d)}
}

func (h *ContactHandler) load(r *http.Request, contact *models.Contact) error {
	return h.db.WithContext(r.Context()).Preload("Account").First(contact, "id = ?", contact.ID).Error
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, contactSort)

	db := h.db.WithContext(r.Context()).
		Scopes(searchScope(q.search, "first_name", "last_name", "email", "phone", "mobile", "title"))
	db = q.eqUUID(db, "accountId", "account_id")
	db = q.eqUUID(db, "assignedTo", "assigned_to")
	db = q.eq(db, "leadSource", "lead_source")
	db = q.eqBool(db, "isPrimary", "is_primary")

	var contacts []models.Contact
	page, err := paginate(db.Preload("Account"), q, &models.Contact{}, &contacts)
	if err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeList(w, contacts, page)
}

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	var contact models.Contact
	req.ApplyTo(&contact)
	contact.CreatedBy = middleware.GetUserID(r.Context())
	if contact.AssignedTo != nil {
		if err := h.requireUser(r, *contact.AssignedTo); err != nil {
			h.fail(w, r, err, msgContactNotFound)
			return
		}
	}

	if err := h.crm.SaveContact(r.Context(), &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}
	if err := h.load(r, &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusCreated, "Contacto creado correctamente", contact)
}

// Get handles GET /api/v1/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	contact := models.Contact{Base: models.Base{ID: id}}
	if err := h.load(r, &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeData(w, http.StatusOK, contact)
}

// Update handles PUT and PATCH /api/v1/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.ContactRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	var contact models.Contact
	if err := h.db.WithContext(r.Context()).First(&contact, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}
	req.ApplyTo(&contact)
	if req.AssignedTo != nil {
		if err := h.requireUser(r, *req.AssignedTo); err != nil {
			h.fail(w, r, err, msgContactNotFound)
			return
		}
	}

	if err := h.crm.SaveContact(r.Context(), &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}
	if err := h.load(r, &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contacto actualizado correctamente", contact)
}

// Delete handles DELETE /api/v1/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result := h.db.WithContext(r.Context()).Delete(&models.Contact{}, "id = ?", id)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgContactNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contacto eliminado correctamente", nil)
}

// BulkDelete handles DELETE /api/v1/contacts/bulk
func (h *ContactHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "IDs de contactos requeridos", Details: errors})
		return
	}

	n, err := crm.BulkDelete[models.Contact](r.Context(), h.db, req.IDs)
	if err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("%d contactos eliminados correctamente", n), map[string]int64{"deletedCount": n})
}

// Assign handles PATCH /api/v1/contacts/{id}/assign
func (h *ContactHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AssignRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}
	if err := h.requireUser(r, req.AssignedTo); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	result := h.db.WithContext(r.Context()).Model(&models.Contact{}).Where("id = ?", id).Update("assigned_to", req.AssignedTo)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgContactNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgContactNotFound)
		return
	}

	contact := models.Contact{Base: models.Base{ID: id}}
	if err := h.load(r, &contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contacto asignado correctamente", contact)
}

// LinkAccount handles PATCH /api/v1/contacts/{id}/link-account
func (h *ContactHandler) LinkAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.LinkAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	contact, err := h.crm.LinkAccount(r.Context(), id, req.AccountID, req.IsPrimary)
	if err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}
	if err := h.load(r, contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contacto vinculado a la cuenta correctamente", contact)
}

// Merge handles POST /api/v1/contacts/merge
func (h *ContactHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req dto.MergeContactsRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	contact, err := h.crm.MergeContacts(r.Context(), crm.MergeInput{
		SourceID:        req.SourceContactID,
		TargetID:        req.TargetContactID,
		FieldsToKeep:    req.FieldsToKeep,
		MergeActivities: req.ShouldMergeActivities(),
	})
	if err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}
	if err := h.load(r, contact); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Contactos fusionados correctamente", contact)
}

type ContactStats struct {
	Total       int64        `json:"total"`
	Primary     int64        `json:"primary"`
	WithAccount int64        `json:"withAccount"`
	BySource    []GroupCount `json:"bySource"`
}

// Stats handles GET /api/v1/contacts/stats
func (h *ContactHandler) Stats(w http.ResponseWriter, r *http.Request) {
	db := h.db.WithContext(r.Context())

	var stats ContactStats
	counts := []struct {
		dst   *int64
		where string
	}{
		{&stats.Total, ""},
		{&stats.Primary, "is_primary = true"},
		{&stats.WithAccount, "account_id IS NOT NULL"},
	}
	for _, c := range counts {
		q := db.Model(&models.Contact{})
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dst).Error; err != nil {
			h.fail(w, r, err, msgContactNotFound)
			return
		}
	}

	var err error
	if stats.BySource, err = groupCount(db, &models.Contact{}, "lead_source"); err != nil {
		h.fail(w, r, err, msgContactNotFound)
		return
	}

	writeData(w, http.StatusOK, stats)
}
