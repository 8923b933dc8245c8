package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OpportunityStage string

const (
	StageProspecting   OpportunityStage = "prospecting"
	StageQualification OpportunityStage = "qualification"
	StageProposal      OpportunityStage = "proposal"
	StageNegotiation   OpportunityStage = "negotiation"
	StageClosedWon     OpportunityStage = "closed-won"
	StageClosedLost    OpportunityStage = "closed-lost"
)

var OpportunityStages = []OpportunityStage{
	StageProspecting, StageQualification, StageProposal,
	StageNegotiation, StageClosedWon, StageClosedLost,
}

var stageProbability = map[OpportunityStage]int{
	StageProspecting:   10,
	StageQualification: 25,
	StageProposal:      50,
	StageNegotiation:   75,
	StageClosedWon:     100,
	StageClosedLost:    0,
}

func (s OpportunityStage) Valid() bool {
	_, ok := stageProbability[s]
	return ok
}

// Probability is the win likelihood, in percent, implied by the stage.
func (s OpportunityStage) Probability() int {
	return stageProbability[s]
}

func (s OpportunityStage) Terminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

type Opportunity struct {
	Base
	Name string `gorm:"not null" json:"name"`

	LeadID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"leadId"`
	Lead       *Lead      `gorm:"foreignKey:LeadID" json:"client,omitempty"`
	PropertyID *uuid.UUID `gorm:"type:uuid;index" json:"propertyId,omitempty"`
	Property   *Property  `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	AccountID  *uuid.UUID `gorm:"type:uuid;index" json:"accountId,omitempty"`
	ContactID  *uuid.UUID `gorm:"type:uuid;index" json:"contactId,omitempty"`

	Stage             OpportunityStage `gorm:"type:varchar(20);default:'prospecting';index" json:"stage"`
	Value             decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"value"`
	Currency          string           `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Probability       int              `gorm:"not null" json:"probability"`
	ExpectedCloseDate *time.Time       `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *time.Time       `json:"actualCloseDate,omitempty"`

	AssignedTo uuid.UUID `gorm:"type:uuid;not null;index" json:"assignedTo"`
	Assignee   *User     `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}

// ApplyStage sets the stage and the values derived from it. Reaching a
// terminal stage stamps the close date once; leaving one clears it.
func (o *Opportunity) ApplyStage(stage OpportunityStage, now time.Time) {
	o.Stage = stage
	o.Probability = stage.Probability()
	if stage.Terminal() {
		if o.ActualCloseDate == nil {
			o.ActualCloseDate = &now
		}
		return
	}
	o.ActualCloseDate = nil
}
