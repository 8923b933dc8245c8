package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "NEW"
	LeadStatusContacted   LeadStatus = "CONTACTED"
	LeadStatusQualified   LeadStatus = "QUALIFIED"
	LeadStatusUnqualified LeadStatus = "UNQUALIFIED"
	LeadStatusConverted   LeadStatus = "CONVERTED"
	LeadStatusLost        LeadStatus = "LOST"
)

var LeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
	LeadStatusUnqualified, LeadStatusConverted, LeadStatusLost,
}

func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// LeadSource is shared by leads and contacts.
type LeadSource string

const (
	LeadSourceWebsite       LeadSource = "WEBSITE"
	LeadSourceReferral      LeadSource = "REFERRAL"
	LeadSourceSocialMedia   LeadSource = "SOCIAL_MEDIA"
	LeadSourceEmailCampaign LeadSource = "EMAIL_CAMPAIGN"
	LeadSourcePhoneCall     LeadSource = "PHONE_CALL"
	LeadSourceTradeShow     LeadSource = "TRADE_SHOW"
	LeadSourceAdvertising   LeadSource = "ADVERTISING"
	LeadSourceOther         LeadSource = "OTHER"
)

var LeadSources = []LeadSource{
	LeadSourceWebsite, LeadSourceReferral, LeadSourceSocialMedia, LeadSourceEmailCampaign,
	LeadSourcePhoneCall, LeadSourceTradeShow, LeadSourceAdvertising, LeadSourceOther,
}

func (s LeadSource) Valid() bool {
	for _, v := range LeadSources {
		if s == v {
			return true
		}
	}
	return false
}

type LeadRating string

const (
	LeadRatingHot  LeadRating = "HOT"
	LeadRatingWarm LeadRating = "WARM"
	LeadRatingCold LeadRating = "COLD"
)

var LeadRatings = []LeadRating{LeadRatingHot, LeadRatingWarm, LeadRatingCold}

func (r LeadRating) Valid() bool {
	return r == LeadRatingHot || r == LeadRatingWarm || r == LeadRatingCold
}

const DefaultCountry = "México"

type Lead struct {
	Base
	FirstName string     `gorm:"not null" json:"firstName"`
	LastName  string     `gorm:"not null" json:"lastName"`
	FullName  string     `gorm:"index" json:"fullName"`
	Email     string     `gorm:"not null;index" json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Mobile    string     `json:"mobile,omitempty"`
	Company   string     `json:"company,omitempty"`
	Title     string     `json:"title,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	Status    LeadStatus `gorm:"type:varchar(20);default:'NEW';index" json:"status"`
	Source    LeadSource `gorm:"type:varchar(20);not null;index" json:"source"`
	Rating    LeadRating `gorm:"type:varchar(10);index" json:"rating,omitempty"`
	Score     int        `gorm:"default:0" json:"score"`
	Address   Address    `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	AssignedTo *uuid.UUID `gorm:"type:uuid;index" json:"assignedTo,omitempty"`
	Assignee   *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`

	PropertyInterest []string            `gorm:"type:jsonb;serializer:json" json:"propertyInterest"`
	BudgetMin        decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"budgetMin"`
	BudgetMax        decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"budgetMax"`
	Notes            string              `json:"notes,omitempty"`

	IsConverted        bool       `gorm:"default:false;index" json:"isConverted"`
	ConvertedDate      *time.Time `json:"convertedDate,omitempty"`
	ConvertedContactID *uuid.UUID `gorm:"type:uuid" json:"convertedContactId,omitempty"`
	ConvertedAccountID *uuid.UUID `gorm:"type:uuid" json:"convertedAccountId,omitempty"`
	ConvertedDealID    *uuid.UUID `gorm:"type:uuid" json:"convertedDealId,omitempty"`

	CustomFields      CustomFields `gorm:"type:jsonb;serializer:json" json:"customFields,omitempty"`
	CreatedBy         uuid.UUID    `gorm:"type:uuid;index" json:"createdBy"`
	LastContactedDate *time.Time   `json:"lastContactedDate,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) BeforeSave(tx *gorm.DB) error {
	l.FullName = joinName(l.FirstName, l.LastName)
	if l.Address.Country == "" {
		l.Address.Country = DefaultCountry
	}
	return nil
}

// BudgetInRange reports whether BudgetMax >= BudgetMin when both are set.
func (l *Lead) BudgetInRange() bool {
	if !l.BudgetMin.Valid || !l.BudgetMax.Valid {
		return true
	}
	return l.BudgetMax.Decimal.GreaterThanOrEqual(l.BudgetMin.Decimal)
}
