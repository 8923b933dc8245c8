package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOffice     PropertyType = "office"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeLand, PropertyTypeCommercial, PropertyTypeOffice:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusReserved  PropertyStatus = "reserved"
	PropertyStatusSold      PropertyStatus = "sold"
	PropertyStatusRented    PropertyStatus = "rented"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusAvailable, PropertyStatusReserved, PropertyStatusSold, PropertyStatusRented:
		return true
	}
	return false
}

type PropertyFeatures struct {
	Bedrooms  int     `json:"bedrooms,omitempty"`
	Bathrooms int     `json:"bathrooms,omitempty"`
	Area      float64 `json:"area"`
	AreaUnit  string  `gorm:"type:varchar(4);default:'sqm'" json:"areaUnit"`
	Parking   int     `json:"parking,omitempty"`
	Floors    int     `json:"floors,omitempty"`
}

type PropertyDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type Property struct {
	Base
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"not null" json:"description"`
	Type        PropertyType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Status      PropertyStatus   `gorm:"type:varchar(20);default:'available';index" json:"status"`
	Price       decimal.Decimal  `gorm:"type:numeric(14,2);not null;index" json:"price"`
	Currency    string           `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Address     Address          `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Features    PropertyFeatures `gorm:"embedded;embeddedPrefix:features_" json:"features"`

	Amenities []string           `gorm:"type:jsonb;serializer:json" json:"amenities"`
	Images    []string           `gorm:"type:jsonb;serializer:json" json:"images"`
	Documents []PropertyDocument `gorm:"type:jsonb;serializer:json" json:"documents"`

	OwnerID   *uuid.UUID `gorm:"type:uuid;index" json:"ownerId,omitempty"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;index" json:"createdBy"`
}

func (Property) TableName() string {
	return "properties"
}
