package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityTask    ActivityType = "task"
	ActivityNote    ActivityType = "note"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask, ActivityNote:
		return true
	}
	return false
}

type ActivityStatus string

const (
	ActivityPending   ActivityStatus = "pending"
	ActivityCompleted ActivityStatus = "completed"
	ActivityCancelled ActivityStatus = "cancelled"
)

func (s ActivityStatus) Valid() bool {
	return s == ActivityPending || s == ActivityCompleted || s == ActivityCancelled
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// RelatedType tags the entity an activity points at.
type RelatedType string

const (
	RelatedLead        RelatedType = "lead"
	RelatedOpportunity RelatedType = "opportunity"
	RelatedProperty    RelatedType = "property"
	RelatedUser        RelatedType = "user"
)

func (t RelatedType) Valid() bool {
	switch t {
	case RelatedLead, RelatedOpportunity, RelatedProperty, RelatedUser:
		return true
	}
	return false
}

// RelatedRef is a tagged reference; there is no foreign key behind it.
type RelatedRef struct {
	Kind     RelatedType `gorm:"column:type;type:varchar(20);index:idx_activity_related" json:"type"`
	EntityID uuid.UUID   `gorm:"column:id;type:uuid;index:idx_activity_related" json:"id"`
}

type CallDetails struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
}

type EmailDetails struct {
	To       []string   `json:"to,omitempty"`
	CC       []string   `json:"cc,omitempty"`
	Subject  string     `json:"subject,omitempty"`
	Body     string     `json:"body,omitempty"`
	SentDate *time.Time `json:"sentDate,omitempty"`
}

type MeetingDetails struct {
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	MeetingLink string   `json:"meetingLink,omitempty"`
}

type Reminder struct {
	Enabled bool       `gorm:"default:false;index" json:"enabled"`
	Time    *time.Time `gorm:"index" json:"time,omitempty"`
	Sent    bool       `gorm:"default:false" json:"sent"`
}

var CallOutcomes = []string{"answered", "no-answer", "voicemail", "busy"}

type Activity struct {
	Base
	Type          ActivityType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        ActivityStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Priority      Priority       `gorm:"type:varchar(10);default:'medium'" json:"priority"`
	DueDate       *time.Time     `gorm:"index" json:"dueDate,omitempty"`
	CompletedDate *time.Time     `json:"completedDate,omitempty"`
	Duration      int            `json:"duration,omitempty"`

	RelatedTo RelatedRef `gorm:"embedded;embeddedPrefix:related_" json:"relatedTo"`

	AssignedTo uuid.UUID `gorm:"type:uuid;not null;index" json:"assignedTo"`
	Assignee   *User     `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedBy  uuid.UUID `gorm:"type:uuid;not null;index" json:"createdBy"`

	CallDetails    *CallDetails    `gorm:"type:jsonb;serializer:json" json:"callDetails,omitempty"`
	EmailDetails   *EmailDetails   `gorm:"type:jsonb;serializer:json" json:"emailDetails,omitempty"`
	MeetingDetails *MeetingDetails `gorm:"type:jsonb;serializer:json" json:"meetingDetails,omitempty"`
	Reminder       Reminder        `gorm:"embedded;embeddedPrefix:reminder_" json:"reminder"`
}

func (Activity) TableName() string {
	return "activities"
}

// Complete marks the activity done, stamping the completion date once.
func (a *Activity) Complete(now time.Time) {
	a.Status = ActivityCompleted
	if a.CompletedDate == nil {
		a.CompletedDate = &now
	}
}
