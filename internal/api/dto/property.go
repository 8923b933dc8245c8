package dto

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/validation"
	"github.com/vinq/vinq-crm/internal/database/models"
)

type FeaturesInput struct {
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Bathrooms *int     `json:"bathrooms,omitempty"`
	Area      *float64 `json:"area,omitempty"`
	AreaUnit  *string  `json:"areaUnit,omitempty"`
	Parking   *int     `json:"parking,omitempty"`
	Floors    *int     `json:"floors,omitempty"`
}

func (f *FeaturesInput) ApplyTo(dst *models.PropertyFeatures) {
	if f == nil {
		return
	}
	setValue(&dst.Bedrooms, f.Bedrooms)
	setValue(&dst.Bathrooms, f.Bathrooms)
	setValue(&dst.Area, f.Area)
	setString(&dst.AreaUnit, f.AreaUnit)
	setValue(&dst.Parking, f.Parking)
	setValue(&dst.Floors, f.Floors)
}

type PropertyRequest struct {
	Title       *string                   `json:"title,omitempty"`
	Description *string                   `json:"description,omitempty"`
	Type        *models.PropertyType      `json:"type,omitempty"`
	Status      *models.PropertyStatus    `json:"status,omitempty"`
	Price       *decimal.Decimal          `json:"price,omitempty"`
	Currency    *string                   `json:"currency,omitempty"`
	Address     *AddressInput             `json:"address,omitempty"`
	Features    *FeaturesInput            `json:"features,omitempty"`
	Amenities   []string                  `json:"amenities,omitempty"`
	Images      []string                  `json:"images,omitempty"`
	Documents   []models.PropertyDocument `json:"documents,omitempty"`
	OwnerID     *uuid.UUID                `json:"owner,omitempty"`
}

func (r PropertyRequest) Validate(create bool) map[string]string {
	errors := make(map[string]string)

	if create {
		required(errors, "title", r.Title, "El título es requerido")
		required(errors, "description", r.Description, "La descripción es requerida")
		if r.Type == nil {
			errors["type"] = "El tipo es requerido"
		}
		if r.Price == nil {
			errors["price"] = "El precio es requerido"
		}
		if r.Address == nil {
			errors["address"] = "La dirección es requerida"
		} else {
			required(errors, "address.street", r.Address.Street, "La calle es requerida")
			required(errors, "address.city", r.Address.City, "La ciudad es requerida")
			required(errors, "address.state", r.Address.State, "El estado es requerido")
		}
		if r.Features == nil || r.Features.Area == nil {
			errors["features.area"] = "El área es requerida"
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
	if r.Price != nil && r.Price.IsNegative() {
		errors["price"] = "El precio no puede ser negativo"
	}
	if r.Currency != nil && !validation.IsValidCurrency(strings.ToUpper(strings.TrimSpace(*r.Currency))) {
		errors["currency"] = "Moneda inválida"
	}
	if f := r.Features; f != nil {
		if f.Area != nil && *f.Area < 0 {
			errors["features.area"] = "El área no puede ser negativa"
		}
		if f.AreaUnit != nil && !validation.OneOf(*f.AreaUnit, "sqm", "sqft") {
			errors["features.areaUnit"] = "Unidad inválida"
		}
	}
	for _, d := range r.Documents {
		if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.URL) == "" {
			errors["documents"] = "Cada documento requiere nombre y URL"
			break
		}
	}

	return errors
}

func (r PropertyRequest) ApplyTo(p *models.Property) {
	setString(&p.Title, r.Title)
	setString(&p.Description, r.Description)
	setValue(&p.Type, r.Type)
	setValue(&p.Status, r.Status)
	setValue(&p.Price, r.Price)
	if r.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*r.Currency))
	}
	r.Address.ApplyTo(&p.Address)
	r.Features.ApplyTo(&p.Features)
	if r.Amenities != nil {
		p.Amenities = r.Amenities
	}
	if r.Images != nil {
		p.Images = r.Images
	}
	if r.Documents != nil {
		p.Documents = r.Documents
	}
	setOptional(&p.OwnerID, r.OwnerID)
}
