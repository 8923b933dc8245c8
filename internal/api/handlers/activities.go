package handlers

import (
	"net/http"
	"time"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgActivityNotFound = "Actividad no encontrada"

var activitySort = baseSort.with(sortColumns{
	"dueDate":       "due_date",
	"completedDate": "completed_date",
	"priority":      "priority",
	"status":        "status",
	"type":          "type",
	"title":         "title",
})

type ActivityHandler struct {
	base
}

func NewActivityHandler(d Deps) *ActivityHandler {
	return &ActivityHandler{base: newBase(d)}
}

// visible narrows a query to the caller's own activities unless the role
// holds p.
func (h *ActivityHandler) visible(r *http.Request, p auth.Permission) *gorm.DB {
	db := h.db.WithContext(r.Context())
	if !middleware.Can(r.Context(), p) {
		db = db.Where("assigned_to = ?", middleware.GetUserID(r.Context()))
	}
	return db
}

// canEdit reports whether the caller may read or change activity a.
func canEdit(r *http.Request, a *models.Activity) bool {
	return a.AssignedTo == middleware.GetUserID(r.Context()) ||
		middleware.Can(r.Context(), auth.PermActivitiesEditAny)
}

func (h *ActivityHandler) load(r *http.Request, a *models.Activity) error {
	return h.db.WithContext(r.Context()).Preload("Assignee").First(a, "id = ?", a.ID).Error
}

// List handles GET /api/v1/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, activitySort)

	db := h.visible(r, auth.PermActivitiesViewAll).Scopes(searchScope(q.search, "title", "description"))
	db = q.eq(db, "type", "type")
	db = q.eq(db, "status", "status")
	db = q.eq(db, "priority", "priority")
	if q.values.Get("relatedType") != "" && q.values.Get("relatedId") != "" {
		db = q.eq(db, "relatedType", "related_type")
		db = q.eqUUID(db, "relatedId", "related_id")
	}
	if middleware.Can(r.Context(), auth.PermActivitiesViewAll) {
		db = q.eqUUID(db, "assignedTo", "assigned_to")
	}
	if t, ok := q.timeParam("startDate"); ok {
		db = db.Where("due_date >= ?", t)
	}
	if t, ok := q.timeParam("endDate"); ok {
		db = db.Where("due_date <= ?", t)
	}

	var activities []models.Activity
	page, err := paginate(db.Preload("Assignee"), q, &models.Activity{}, &activities)
	if err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeList(w, activities, page)
}

// Today handles GET /api/v1/activities/today
func (h *ActivityHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	var activities []models.Activity
	err := h.visible(r, auth.PermActivitiesViewAgenda).
		Where("due_date >= ? AND due_date < ?", start, end).
		Preload("Assignee").
		Order("due_date ASC").
		Find(&activities).Error
	if err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeData(w, http.StatusOK, activities)
}

// Pending handles GET /api/v1/activities/pending: pending activities whose
// due date has passed.
func (h *ActivityHandler) Pending(w http.ResponseWriter, r *http.Request) {
	var activities []models.Activity
	err := h.visible(r, auth.PermActivitiesViewAgenda).
		Where("status = ? AND due_date < ?", models.ActivityPending, h.now()).
		Preload("Assignee").
		Order("due_date ASC").
		Limit(queryInt(r, "limit", 100, 100)).
		Find(&activities).Error
	if err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeData(w, http.StatusOK, activities)
}

// Get handles GET /api/v1/activities/{id}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	activity := models.Activity{Base: models.Base{ID: id}}
	if err := h.load(r, &activity); err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if !canEdit(r, &activity) {
		writeFail(w, http.StatusForbidden, msgForbidden)
		return
	}

	writeData(w, http.StatusOK, activity)
}

// Create handles POST /api/v1/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ActivityRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	activity := models.Activity{
		Status:     models.ActivityPending,
		Priority:   models.PriorityMedium,
		AssignedTo: userID,
		CreatedBy:  userID,
	}
	req.ApplyTo(&activity, h.now())

	if _, err := h.crm.ResolveRelated(r.Context(), activity.RelatedTo); err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if activity.AssignedTo != userID {
		if err := h.requireUser(r, activity.AssignedTo); err != nil {
			h.fail(w, r, err, msgActivityNotFound)
			return
		}
	}

	if err := h.db.WithContext(r.Context()).Create(&activity).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if err := h.load(r, &activity); err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	h.logger.Info("activity created", "activity_id", activity.ID, "related_type", activity.RelatedTo.Kind)
	writeMessage(w, http.StatusCreated, "Actividad creada correctamente", activity)
}

// Update handles PUT and PATCH /api/v1/activities/{id}
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.ActivityRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	db := h.db.WithContext(r.Context())
	var activity models.Activity
	if err := db.First(&activity, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if !canEdit(r, &activity) {
		writeFail(w, http.StatusForbidden, msgForbidden)
		return
	}

	req.ApplyTo(&activity, h.now())
	if req.RelatedTo != nil {
		if _, err := h.crm.ResolveRelated(r.Context(), activity.RelatedTo); err != nil {
			h.fail(w, r, err, msgActivityNotFound)
			return
		}
	}
	if req.AssignedTo != nil {
		if err := h.requireUser(r, *req.AssignedTo); err != nil {
			h.fail(w, r, err, msgActivityNotFound)
			return
		}
	}

	if err := db.Omit(clause.Associations).Save(&activity).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if err := h.load(r, &activity); err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Actividad actualizada correctamente", activity)
}

// Complete handles PATCH /api/v1/activities/{id}/complete
func (h *ActivityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	db := h.db.WithContext(r.Context())
	var activity models.Activity
	if err := db.First(&activity, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if !canEdit(r, &activity) {
		writeFail(w, http.StatusForbidden, msgForbidden)
		return
	}

	activity.Complete(h.now())
	err := db.Model(&activity).Updates(map[string]any{
		"status":         activity.Status,
		"completed_date": activity.CompletedDate,
	}).Error
	if err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if err := h.load(r, &activity); err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Actividad completada correctamente", activity)
}

// Delete handles DELETE /api/v1/activities/{id}; only the creator or a
// role holding PermActivitiesDeleteAny may remove an activity.
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	db := h.db.WithContext(r.Context())
	var activity models.Activity
	if err := db.First(&activity, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}
	if activity.CreatedBy != middleware.GetUserID(r.Context()) && !middleware.Can(r.Context(), auth.PermActivitiesDeleteAny) {
		writeFail(w, http.StatusForbidden, msgForbidden)
		return
	}

	if err := db.Delete(&activity).Error; err != nil {
		h.fail(w, r, err, msgActivityNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Actividad eliminada correctamente", nil)
}
