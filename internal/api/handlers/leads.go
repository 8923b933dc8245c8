package handlers

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm/clause"
)

const msgLeadNotFound = "Lead no encontrado"

var leadSort = baseSort.with(sortColumns{
	"firstName": "first_name",
	"lastName":  "last_name",
	"fullName":  "full_name",
	"email":     "email",
	"company":   "company",
	"status":    "status",
	"source":    "source",
	"rating":    "rating",
	"score":     "score",
	"budgetMin": "budget_min",
	"budgetMax": "budget_max",
})

type LeadHandler struct {
	base
}

func NewLeadHandler(d Deps) *LeadHandler {
	return &LeadHandler{base: newBase(d)}
}

func (h *LeadHandler) load(r *http.Request, lead *models.Lead) error {
	return h.db.WithContext(r.Context()).Preload("Assignee").First(lead, "id = ?", lead.ID).Error
}

// List handles GET /api/v1/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, leadSort)

	db := h.db.WithContext(r.Context()).
		Scopes(searchScope(q.search, "first_name", "last_name", "email", "company", "phone", "mobile"))
	db = q.eq(db, "status", "status")
	db = q.eq(db, "source", "source")
	db = q.eq(db, "rating", "rating")
	db = q.eqUUID(db, "assignedTo", "assigned_to")
	db = q.intRange(db, "minScore", "maxScore", "score")
	db = q.decimalMin(db, "minBudget", "budget_min")
	db = q.decimalMax(db, "maxBudget", "budget_max")

	var leads []models.Lead
	page, err := paginate(db.Preload("Assignee"), q, &models.Lead{}, &leads)
	if err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeList(w, leads, page)
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.LeadRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	lead := models.Lead{Status: models.LeadStatusNew}
	req.ApplyTo(&lead)
	lead.CreatedBy = middleware.GetUserID(r.Context())
	if !lead.BudgetInRange() {
		writeValidation(w, dto.BudgetError())
		return
	}
	if lead.AssignedTo != nil {
		if err := h.requireUser(r, *lead.AssignedTo); err != nil {
			h.fail(w, r, err, msgLeadNotFound)
			return
		}
	}

	if err := h.db.WithContext(r.Context()).Create(&lead).Error; err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if err := h.load(r, &lead); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "created_by", lead.CreatedBy)
	writeMessage(w, http.StatusCreated, "Lead creado correctamente", lead)
}

// Get handles GET /api/v1/leads/{id}
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	lead := models.Lead{Base: models.Base{ID: id}}
	if err := h.load(r, &lead); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeData(w, http.StatusOK, lead)
}

// Update handles PUT and PATCH /api/v1/leads/{id}. Only the fields present in
// the body change, and the budget rule is checked on the merged record.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.LeadRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	var lead models.Lead
	if err := h.db.WithContext(r.Context()).First(&lead, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if req.Status != nil && *req.Status != lead.Status {
		if err := crm.CheckStatusChange(&lead, *req.Status); err != nil {
			h.fail(w, r, err, msgLeadNotFound)
			return
		}
	}

	req.ApplyTo(&lead)
	if !lead.BudgetInRange() {
		writeValidation(w, dto.BudgetError())
		return
	}
	if req.AssignedTo != nil {
		if err := h.requireUser(r, *req.AssignedTo); err != nil {
			h.fail(w, r, err, msgLeadNotFound)
			return
		}
	}

	if err := h.db.WithContext(r.Context()).Omit(clause.Associations).Save(&lead).Error; err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if err := h.load(r, &lead); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Lead actualizado correctamente", lead)
}

// Delete handles DELETE /api/v1/leads/{id}
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result := h.db.WithContext(r.Context()).Delete(&models.Lead{}, "id = ?", id)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgLeadNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgLeadNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Lead eliminado correctamente", nil)
}

// BulkDelete handles DELETE /api/v1/leads/bulk
func (h *LeadHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "IDs de leads requeridos", Details: errors})
		return
	}

	n, err := crm.BulkDelete[models.Lead](r.Context(), h.db, req.IDs)
	if err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("%d leads eliminados correctamente", n), map[string]int64{"deletedCount": n})
}

// Assign handles PATCH /api/v1/leads/{id}/assign
func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request) {
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
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	result := h.db.WithContext(r.Context()).Model(&models.Lead{}).Where("id = ?", id).Update("assigned_to", req.AssignedTo)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgLeadNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgLeadNotFound)
		return
	}

	lead := models.Lead{Base: models.Base{ID: id}}
	if err := h.load(r, &lead); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Lead asignado correctamente", lead)
}

// Convert handles POST /api/v1/leads/{id}/convert. An empty body converts
// the lead without creating any related record.
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.ConvertLeadRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	opts := crm.ConvertOptions{
		CreateContact: req.CreateContact,
		CreateAccount: req.CreateAccount,
		CreateDeal:    req.CreateDeal,
		AccountName:   req.AccountName,
		DealCloseDate: req.DealCloseDate,
	}
	if req.DealAmount != nil {
		opts.DealAmount = *req.DealAmount
	}
	if req.DealStage != nil {
		opts.DealStage = *req.DealStage
	}
	if req.PropertyID != nil {
		opts.PropertyID = *req.PropertyID
	}

	result, err := h.crm.ConvertLead(r.Context(), id, opts, middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Lead convertido correctamente", result)
}

type LeadStats struct {
	Total          int64        `json:"total"`
	Converted      int64        `json:"converted"`
	ConversionRate string       `json:"conversionRate"`
	ByStatus       []GroupCount `json:"byStatus"`
	BySource       []GroupCount `json:"bySource"`
	ByRating       []GroupCount `json:"byRating"`
}

// Stats handles GET /api/v1/leads/stats
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	db := h.db.WithContext(r.Context())

	var stats LeadStats
	if err := db.Model(&models.Lead{}).Count(&stats.Total).Error; err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if err := db.Model(&models.Lead{}).Where("is_converted = ?", true).Count(&stats.Converted).Error; err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	stats.ConversionRate = conversionRate(stats.Converted, stats.Total)

	var err error
	if stats.ByStatus, err = groupCount(db, &models.Lead{}, "status"); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if stats.BySource, err = groupCount(db, &models.Lead{}, "source"); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}
	if stats.ByRating, err = groupCount(db, &models.Lead{}, "rating"); err != nil {
		h.fail(w, r, err, msgLeadNotFound)
		return
	}

	writeData(w, http.StatusOK, stats)
}

// conversionRate formats converted/total as a percentage with two decimals.
func conversionRate(converted, total int64) string {
	if total == 0 {
		return "0%"
	}
	rate := decimal.NewFromInt(converted * 100).Div(decimal.NewFromInt(total))
	return rate.StringFixed(2) + "%"
}
