package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgAccountNotFound = "Cuenta no encontrada"

var accountSort = baseSort.with(sortColumns{
	"name":          "name",
	"accountNumber": "account_number",
	"type":          "type",
	"industry":      "industry",
	"annualRevenue": "annual_revenue",
	"employees":     "employees",
	"rating":        "rating",
})

type AccountHandler struct {
	base
}

func NewAccountHandler(d Deps) *AccountHandler {
	return &AccountHandler{base: newBase(d)}
}

// load fetches an account with its parent, children and contacts.
func (h *AccountHandler) load(r *http.Request, account *models.Account) error {
	return h.db.WithContext(r.Context()).
		Preload("Parent").
		Preload("Children").
		Preload("Contacts").
		First(account, "id = ?", account.ID).Error
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, accountSort)

	db := h.db.WithContext(r.Context()).
		Scopes(searchScope(q.search, "name", "account_number", "email", "phone", "website"))
	db = q.eq(db, "type", "type")
	db = q.eq(db, "industry", "industry")
	db = q.eqUUID(db, "assignedTo", "assigned_to")
	db = q.eq(db, "territory", "territory")
	db = q.eqBool(db, "isActive", "is_active")
	db = q.eqUUID(db, "parentAccountId", "parent_account_id")

	var accounts []models.Account
	page, err := paginate(db.Preload("Parent"), q, &models.Account{}, &accounts)
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeList(w, accounts, page)
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.AccountRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	account := models.Account{Type: models.AccountTypeProspect, IsActive: true}
	req.ApplyTo(&account)
	account.CreatedBy = middleware.GetUserID(r.Context())
	if account.AssignedTo != nil {
		if err := h.requireUser(r, *account.AssignedTo); err != nil {
			h.fail(w, r, err, msgAccountNotFound)
			return
		}
	}

	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if req.ParentAccountID != nil {
			if _, err := crm.SetParentTx(tx, account.ID, req.ParentAccountID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if err := h.load(r, &account); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	h.logger.Info("account created", "account_id", account.ID, "account_number", account.AccountNumber)
	writeMessage(w, http.StatusCreated, "Cuenta creada correctamente", account)
}

// Get handles GET /api/v1/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	account := models.Account{Base: models.Base{ID: id}}
	if err := h.load(r, &account); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeData(w, http.StatusOK, account)
}

// Update handles PUT and PATCH /api/v1/accounts/{id}. A parentAccountId in
// the body goes through the same hierarchy checks as set-parent.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AccountRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	db := h.db.WithContext(r.Context())
	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if req.AssignedTo != nil {
		if err := h.requireUser(r, *req.AssignedTo); err != nil {
			h.fail(w, r, err, msgAccountNotFound)
			return
		}
	}

	req.ApplyTo(&account)
	err := db.Transaction(func(tx *gorm.DB) error {
		if req.ParentAccountID != nil {
			if _, err := crm.SetParentTx(tx, id, req.ParentAccountID); err != nil {
				return err
			}
			account.ParentAccountID = req.ParentAccountID
		}
		return tx.Omit(clause.Associations).Save(&account).Error
	})
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if err := h.load(r, &account); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Cuenta actualizada correctamente", account)
}

// Delete handles DELETE /api/v1/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	n, err := h.crm.DeleteAccounts(r.Context(), []uuid.UUID{id})
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if n == 0 {
		writeFail(w, http.StatusNotFound, msgAccountNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Cuenta eliminada correctamente", nil)
}

// BulkDelete handles DELETE /api/v1/accounts/bulk
func (h *AccountHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Success: false, Message: "IDs de cuentas requeridos", Details: errors})
		return
	}

	n, err := h.crm.DeleteAccounts(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeMessage(w, http.StatusOK, fmt.Sprintf("%d cuentas eliminadas correctamente", n), map[string]int64{"deletedCount": n})
}

// Assign handles PATCH /api/v1/accounts/{id}/assign
func (h *AccountHandler) Assign(w http.ResponseWriter, r *http.Request) {
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
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	result := h.db.WithContext(r.Context()).Model(&models.Account{}).Where("id = ?", id).Update("assigned_to", req.AssignedTo)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgAccountNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgAccountNotFound)
		return
	}

	account := models.Account{Base: models.Base{ID: id}}
	if err := h.load(r, &account); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Cuenta asignada correctamente", account)
}

// SetParent handles PATCH /api/v1/accounts/{id}/set-parent
func (h *AccountHandler) SetParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.SetParentRequest
	if !decode(w, r, &req) {
		return
	}

	account, err := h.crm.SetParent(r.Context(), id, req.ParentAccountID)
	if err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if err := h.load(r, account); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Cuenta padre actualizada correctamente", account)
}

type AccountStats struct {
	Total      int64        `json:"total"`
	Active     int64        `json:"active"`
	ByType     []GroupCount `json:"byType"`
	ByIndustry []GroupCount `json:"byIndustry"`
}

// Stats handles GET /api/v1/accounts/stats
func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	db := h.db.WithContext(r.Context())

	var stats AccountStats
	if err := db.Model(&models.Account{}).Count(&stats.Total).Error; err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if err := db.Model(&models.Account{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	var err error
	if stats.ByType, err = groupCount(db, &models.Account{}, "type"); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}
	if stats.ByIndustry, err = groupCount(db, &models.Account{}, "industry"); err != nil {
		h.fail(w, r, err, msgAccountNotFound)
		return
	}

	writeData(w, http.StatusOK, stats)
}
