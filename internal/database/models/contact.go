package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Contact struct {
	Base
	FirstName  string `gorm:"not null" json:"firstName"`
	LastName   string `gorm:"not null" json:"lastName"`
	FullName   string `gorm:"index" json:"fullName"`
	Email      string `gorm:"not null;index" json:"email"`
	Phone      string `json:"phone,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Title      string `json:"title,omitempty"`
	Department string `json:"department,omitempty"`

	AccountID *uuid.UUID `gorm:"type:uuid;index" json:"accountId,omitempty"`
	Account   *Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	IsPrimary bool       `gorm:"default:false;index" json:"isPrimary"`

	MailingAddress Address `gorm:"embedded;embeddedPrefix:mailing_" json:"mailingAddress"`
	OtherAddress   Address `gorm:"embedded;embeddedPrefix:other_" json:"otherAddress"`

	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	LeadSource    LeadSource `gorm:"type:varchar(20)" json:"leadSource,omitempty"`
	Description   string     `json:"description,omitempty"`
	LinkedInURL   string     `json:"linkedInUrl,omitempty"`
	TwitterHandle string     `json:"twitterHandle,omitempty"`
	FacebookURL   string     `json:"facebookUrl,omitempty"`

	AssignedTo        *uuid.UUID   `gorm:"type:uuid;index" json:"assignedTo,omitempty"`
	CreatedBy         uuid.UUID    `gorm:"type:uuid;index" json:"createdBy"`
	LastContactedDate *time.Time   `json:"lastContactedDate,omitempty"`
	CustomFields      CustomFields `gorm:"type:jsonb;serializer:json" json:"customFields,omitempty"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeSave(tx *gorm.DB) error {
	c.FullName = joinName(c.FirstName, c.LastName)
	if c.MailingAddress.Country == "" {
		c.MailingAddress.Country = DefaultCountry
	}
	return nil
}
