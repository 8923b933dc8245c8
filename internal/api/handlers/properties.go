package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/storage"
	"gorm.io/gorm/clause"
)

const (
	msgPropertyNotFound = "Propiedad no encontrada"
	msgFileRequired     = "Archivo requerido"

	maxImageSize    = 5 << 20
	maxDocumentSize = 10 << 20
)

var propertySort = baseSort.with(sortColumns{
	"title":  "title",
	"price":  "price",
	"type":   "type",
	"status": "status",
	"city":   "address_city",
	"area":   "features_area",
})

var (
	imageTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
	}
	documentTypes = map[string]bool{
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"image/jpeg": true,
		"image/png":  true,
	}
)

type PropertyHandler struct {
	base
	store storage.ObjectStore
}

// NewPropertyHandler takes a nil store when uploads are disabled.
func NewPropertyHandler(d Deps, store storage.ObjectStore) *PropertyHandler {
	return &PropertyHandler{base: newBase(d), store: store}
}

// List handles GET /api/v1/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, propertySort)

	db := h.db.WithContext(r.Context()).
		Scopes(searchScope(q.search, "title", "description", "address_street", "address_city"))
	db = q.eq(db, "type", "type")
	db = q.eq(db, "status", "status")
	db = q.decimalMin(db, "minPrice", "price")
	db = q.decimalMax(db, "maxPrice", "price")
	if city := strings.TrimSpace(q.values.Get("city")); city != "" {
		db = db.Where("LOWER(address_city) = ?", strings.ToLower(city))
	}

	var properties []models.Property
	page, err := paginate(db, q, &models.Property{}, &properties)
	if err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	writeList(w, properties, page)
}

// Create handles POST /api/v1/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.PropertyRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(true); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	property := models.Property{
		Status:    models.PropertyStatusAvailable,
		Currency:  "USD",
		Address:   models.Address{Country: models.DefaultCountry},
		Features:  models.PropertyFeatures{AreaUnit: "sqm"},
		Amenities: []string{},
		Images:    []string{},
		Documents: []models.PropertyDocument{},
	}
	req.ApplyTo(&property)
	property.CreatedBy = middleware.GetUserID(r.Context())
	if property.OwnerID != nil {
		if err := h.requireUser(r, *property.OwnerID); err != nil {
			h.fail(w, r, err, msgPropertyNotFound)
			return
		}
	}

	if err := h.db.WithContext(r.Context()).Create(&property).Error; err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	h.logger.Info("property created", "property_id", property.ID, "type", property.Type)
	writeMessage(w, http.StatusCreated, "Propiedad creada correctamente", property)
}

// Get handles GET /api/v1/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var property models.Property
	if err := h.db.WithContext(r.Context()).First(&property, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	writeData(w, http.StatusOK, property)
}

// Update handles PUT and PATCH /api/v1/properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.PropertyRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(false); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	db := h.db.WithContext(r.Context())
	var property models.Property
	if err := db.First(&property, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}
	req.ApplyTo(&property)
	if req.OwnerID != nil {
		if err := h.requireUser(r, *req.OwnerID); err != nil {
			h.fail(w, r, err, msgPropertyNotFound)
			return
		}
	}

	if err := db.Omit(clause.Associations).Save(&property).Error; err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Propiedad actualizada correctamente", property)
}

// Delete handles DELETE /api/v1/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result := h.db.WithContext(r.Context()).Delete(&models.Property{}, "id = ?", id)
	if result.Error != nil {
		h.fail(w, r, result.Error, msgPropertyNotFound)
		return
	}
	if result.RowsAffected == 0 {
		writeFail(w, http.StatusNotFound, msgPropertyNotFound)
		return
	}

	writeMessage(w, http.StatusOK, "Propiedad eliminada correctamente", nil)
}

// UploadImage handles POST /api/v1/properties/{id}/images with a multipart
// "image" field.
func (h *PropertyHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, uploadRule{
		field:   "image",
		kind:    "images",
		maxSize: maxImageSize,
		allowed: imageTypes,
		attach: func(p *models.Property, url, name, contentType string) {
			p.Images = append(p.Images, url)
		},
		message: "Imagen subida correctamente",
	})
}

// UploadDocument handles POST /api/v1/properties/{id}/documents with a
// multipart "document" field and an optional "name".
func (h *PropertyHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, uploadRule{
		field:   "document",
		kind:    "documents",
		maxSize: maxDocumentSize,
		allowed: documentTypes,
		attach: func(p *models.Property, url, name, contentType string) {
			p.Documents = append(p.Documents, models.PropertyDocument{Name: name, URL: url, Type: contentType})
		},
		message: "Documento subido correctamente",
	})
}

type uploadRule struct {
	field   string
	kind    string
	maxSize int64
	allowed map[string]bool
	attach  func(p *models.Property, url, name, contentType string)
	message string
}

func (h *PropertyHandler) upload(w http.ResponseWriter, r *http.Request, rule uploadRule) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		h.fail(w, r, storage.ErrNotConfigured, msgPropertyNotFound)
		return
	}

	db := h.db.WithContext(r.Context())
	var property models.Property
	if err := db.First(&property, "id = ?", id).Error; err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rule.maxSize+1<<20)
	if err := r.ParseMultipartForm(rule.maxSize); err != nil {
		writeFail(w, http.StatusBadRequest, "Archivo demasiado grande o formulario inválido")
		return
	}
	file, header, err := r.FormFile(rule.field)
	if err != nil {
		writeFail(w, http.StatusBadRequest, msgFileRequired)
		return
	}
	defer file.Close()

	if header.Size > rule.maxSize {
		writeFail(w, http.StatusBadRequest, "Archivo demasiado grande")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !rule.allowed[contentType] {
		writeFail(w, http.StatusBadRequest, "Tipo de archivo no permitido")
		return
	}

	key := storage.PropertyKey(property.ID, rule.kind, header.Filename)
	url, err := h.store.Put(r.Context(), key, file, header.Size, contentType)
	if err != nil {
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = filepath.Base(header.Filename)
	}
	rule.attach(&property, url, name, contentType)

	if err := db.Model(&property).Select("images", "documents").Updates(&property).Error; err != nil {
		if delErr := h.store.Delete(r.Context(), key); delErr != nil {
			h.logger.Warn("orphaned upload", "key", key, "error", delErr)
		}
		h.fail(w, r, err, msgPropertyNotFound)
		return
	}

	h.logger.Info("property file uploaded", "property_id", property.ID, "kind", rule.kind, "key", key)
	writeMessage(w, http.StatusOK, rule.message, property)
}
