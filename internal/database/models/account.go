package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AccountType string

const (
	AccountTypeCustomer   AccountType = "Customer"
	AccountTypeProspect   AccountType = "Prospect"
	AccountTypePartner    AccountType = "Partner"
	AccountTypeReseller   AccountType = "Reseller"
	AccountTypeVendor     AccountType = "Vendor"
	AccountTypeCompetitor AccountType = "Competitor"
	AccountTypeOther      AccountType = "Other"
)

var AccountTypes = []AccountType{
	AccountTypeCustomer, AccountTypeProspect, AccountTypePartner, AccountTypeReseller,
	AccountTypeVendor, AccountTypeCompetitor, AccountTypeOther,
}

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if t == v {
			return true
		}
	}
	return false
}

var AccountIndustries = []string{
	"Real Estate", "Construction", "Finance", "Technology", "Retail",
	"Manufacturing", "Healthcare", "Education", "Hospitality", "Other",
}

var AccountSizes = []string{
	"Small (1-50)", "Medium (51-200)", "Large (201-1000)", "Enterprise (1000+)",
}

type Account struct {
	Base
	Name          string              `gorm:"not null;index" json:"name"`
	AccountNumber string              `gorm:"uniqueIndex" json:"accountNumber"`
	Website       string              `json:"website,omitempty"`
	Phone         string              `json:"phone,omitempty"`
	Email         string              `json:"email,omitempty"`
	Type          AccountType         `gorm:"type:varchar(20);default:'Prospect';index" json:"type"`
	Industry      string              `gorm:"index" json:"industry,omitempty"`
	Size          string              `json:"size,omitempty"`
	AnnualRevenue decimal.NullDecimal `gorm:"type:numeric(16,2)" json:"annualRevenue"`
	Employees     int                 `json:"employees,omitempty"`

	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billingAddress"`
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`

	ParentAccountID *uuid.UUID `gorm:"type:uuid;index" json:"parentAccountId,omitempty"`
	Parent          *Account   `gorm:"foreignKey:ParentAccountID" json:"parentAccount,omitempty"`
	Children        []Account  `gorm:"foreignKey:ParentAccountID" json:"childAccounts,omitempty"`
	Contacts        []Contact  `gorm:"foreignKey:AccountID" json:"contacts,omitempty"`

	AssignedTo  *uuid.UUID `gorm:"type:uuid;index" json:"assignedTo,omitempty"`
	Territory   string     `gorm:"index" json:"territory,omitempty"`
	Description string     `json:"description,omitempty"`
	Rating      int        `json:"rating,omitempty"`
	IsActive    bool       `gorm:"not null;index" json:"isActive"`

	LinkedInURL   string `json:"linkedInUrl,omitempty"`
	TwitterHandle string `json:"twitterHandle,omitempty"`
	FacebookURL   string `json:"facebookUrl,omitempty"`

	CustomFields     CustomFields `gorm:"type:jsonb;serializer:json" json:"customFields,omitempty"`
	CreatedBy        uuid.UUID    `gorm:"type:uuid;index" json:"createdBy"`
	LastActivityDate *time.Time   `json:"lastActivityDate,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate assigns the next sequential account number. Soft-deleted rows
// are counted so numbers are never reused.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if err := a.Base.BeforeCreate(tx); err != nil {
		return err
	}
	if a.AccountNumber != "" {
		return nil
	}

	var count int64
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&Account{}).Unscoped().Count(&count).Error; err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	a.AccountNumber = FormatAccountNumber(count + 1)
	return nil
}

func FormatAccountNumber(n int64) string {
	return fmt.Sprintf("ACC-%06d", n)
}
