package handlers

import (
	"net/http"
	"strings"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgOpportunityNotFound = "Oportunidad no encontrada"

var opportunitySort = baseSort.with(sortColumns{
	"name":              "name",
	"stage":             "stage",
	"value":             "value",
	"probability":       "probability",
	"expectedCloseDate": "expected_close_date",
})

type OpportunityHandler struct {
	base
}

func NewOpportunityHandler(d Deps) *OpportunityHandler {
	return &OpportunityHandler{base: newBase(d)}
}

// scoped restricts the query to the caller's own opportunities unless the
// role may see every pipeline.
func (h *OpportunityHandler) scoped(r *http.Request) *gorm.DB {
	db := h.db.WithContext(r.Context())
	if !middleware.Can(r.Context(), auth.PermOpportunitiesViewAll) {
		db = db.Where("assigned_to = ?", middleware.GetUserID(r.Context()))
	}
	return db
}

func (h *OpportunityHandler) load(r *http.Request, opp *models.Opportunity) error {
	return h.db.WithContext(r.Context()).
		Preload("Lead").
		Preload("Property").
		Preload("Assignee").
		First(opp, "id = ?", opp.ID).Error
}

// find loads an opportunity the caller is allowed to see.
func (h *OpportunityHandler) find(r *http.Request, opp *models.Opportunity) error {
	return h.scoped(r).First(opp, "id = ?", opp.ID).Error
}

// List handles GET /api/v1/opportunities
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, opportunitySort)

	db := h.scoped(r).Scopes(searchScope(q.search, "name", "notes"))
	db = q.eq(db, "stage", "stage")
	if middleware.Can(r.Context(), auth.PermOpportunitiesViewAll) {
		db = q.eqUUID(db, "assignedTo", "assigned_to")
	}

	var opps []models.Opportunity
	page, err := paginate(db.Preload("Lead").Preload("Property").Preload("Assignee"), q, &models.Opportunity{}, &opps)
	if err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	writeList(w, opps, page)
}

// checkRefs verifies the lead and property an opportunity points at.
func (h *OpportunityHandler) checkRefs(w http.ResponseWriter, r *http.Request, opp *models.Opportunity) bool {
	db := h.db.WithContext(r.Context())

	var count int64
	if err := db.Model(&models.Lead{}).Where("id = ?", opp.LeadID).Count(&count).Error; err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return false
	}
	if count == 0 {
		writeFail(w, http.StatusNotFound, msgLeadNotFound)
		return false
	}
	if opp.PropertyID != nil {
		if err := db.Model(&models.Property{}).Where("id = ?", *opp.PropertyID).Count(&count).Error; err != nil {
			h.fail(w, r, err, msgOpportunityNotFound)
			return false
		}
		if count == 0 {
			h.fail(w, r, crm.ErrPropertyNotFound, msgOpportunityNotFound)
			return false
		}
	}
	if err := h.requireUser(r, opp.AssignedTo); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return false
	}
	return true
}

// Create handles POST /api/v1/opportunities
func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.OpportunityRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	opp := models.Opportunity{Currency: "USD", AssignedTo: middleware.GetUserID(r.Context())}
	req.ApplyTo(&opp)
	stage := models.StageProspecting
	if req.Stage != nil {
		stage = *req.Stage
	}
	opp.ApplyStage(stage, h.now())
	if !h.checkRefs(w, r, &opp) {
		return
	}

	if err := h.db.WithContext(r.Context()).Create(&opp).Error; err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	if err := h.load(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	h.logger.Info("opportunity created", "opportunity_id", opp.ID, "stage", opp.Stage)
	writeMessage(w, http.StatusCreated, "Oportunidad creada correctamente", opp)
}

// Get handles GET /api/v1/opportunities/{id}
func (h *OpportunityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	opp := models.Opportunity{Base: models.Base{ID: id}}
	if err := h.find(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	if err := h.load(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	writeData(w, http.StatusOK, opp)
}

// Update handles PUT and PATCH /api/v1/opportunities/{id}
func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.OpportunityRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	opp := models.Opportunity{Base: models.Base{ID: id}}
	if err := h.find(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	req.ApplyTo(&opp)
	if req.Stage != nil {
		opp.ApplyStage(*req.Stage, h.now())
	}
	if !h.checkRefs(w, r, &opp) {
		return
	}

	if err := h.db.WithContext(r.Context()).Omit(clause.Associations).Save(&opp).Error; err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	if err := h.load(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Oportunidad actualizada correctamente", opp)
}

// Delete handles DELETE /api/v1/opportunities/{id}
func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result := h.scoped(r).Delete(&models.Opportunity{}, "id = ?", id)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgOpportunityNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgOpportunityNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Oportunidad eliminada correctamente", nil)
}

// UpdateStage handles PATCH /api/v1/opportunities/{id}/stage
func (h *OpportunityHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.StageRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	opp := models.Opportunity{Base: models.Base{ID: id}}
	if err := h.find(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	opp.ApplyStage(req.Stage, h.now())

	err := h.db.WithContext(r.Context()).Model(&opp).Select("stage", "probability", "actual_close_date").Updates(map[string]any{
		"stage":             opp.Stage,
		"probability":       opp.Probability,
		"actual_close_date": opp.ActualCloseDate,
	}).Error
	if err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}
	if err := h.load(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	h.logger.Info("opportunity stage changed", "opportunity_id", opp.ID, "stage", opp.Stage)
	writeMessage(w, http.StatusOK, "Etapa actualizada correctamente", opp)
}

// AddActivity handles POST /api/v1/opportunities/{id}/activities. The
// activity is logged as completed at the given date, or now.
func (h *OpportunityHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AddActivityRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	opp := models.Opportunity{Base: models.Base{ID: id}}
	if err := h.find(r, &opp); err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	userID := middleware.GetUserID(r.Context())
	at := h.now()
	if req.Date != nil {
		at = *req.Date
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = activityTitle(req.Type, opp.Name)
	}

	activity := models.Activity{
		Type:        req.Type,
		Title:       title,
		Description: req.Description,
		Priority:    models.PriorityMedium,
		DueDate:     &at,
		RelatedTo:   models.RelatedRef{Kind: models.RelatedOpportunity, EntityID: opp.ID},
		AssignedTo:  userID,
		CreatedBy:   userID,
	}
	activity.Complete(at)

	if err := h.db.WithContext(r.Context()).Create(&activity).Error; err != nil {
		h.fail(w, r, err, msgOpportunityNotFound)
		return
	}

	writeMessage(w, http.StatusCreated, "Actividad agregada correctamente", activity)
}

var activityVerbs = map[models.ActivityType]string{
	models.ActivityCall:    "Llamada",
	models.ActivityEmail:   "Email",
	models.ActivityMeeting: "Reunión",
	models.ActivityTask:    "Tarea",
	models.ActivityNote:    "Nota",
}

func activityTitle(t models.ActivityType, name string) string {
	return activityVerbs[t] + ": " + name
}
