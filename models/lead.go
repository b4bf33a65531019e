package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LeadNew         = "new"
	LeadContacted   = "contacted"
	LeadQualified   = "qualified"
	LeadNegotiating = "negotiating"
	LeadClosed      = "closed"
	LeadLost        = "lost"

	ActivityCreated      = "created"
	ActivityStatusChange = "status_change"
	ActivityNote         = "note"
	ActivityCall         = "call"

	LeadMessageMaxLength = 2000
	NameMaxLength        = 100
)

var (
	LeadSources       = []string{"website", "referral", "social_media", "zillow", "realtor", "open_house", "cold_call", "other"}
	LeadStatuses      = []string{LeadNew, LeadContacted, LeadQualified, LeadNegotiating, LeadClosed, LeadLost}
	LeadPriorities    = []string{"low", "medium", "high", "urgent"}
	LeadInterests     = []string{"buying", "selling", "renting", "investing", "general"}
	LeadTimelines     = []string{"immediate", "1-3_months", "3-6_months", "6-12_months", "just_browsing"}
	LeadActivityTypes = []string{ActivityCreated, ActivityStatusChange, ActivityNote, ActivityCall, "email", "meeting", "viewing", "offer"}
)

type Activity struct {
	Type        string              `bson:"type" json:"type"`
	Description string              `bson:"description" json:"description"`
	PerformedBy *primitive.ObjectID `bson:"performedBy,omitempty" json:"performedBy,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

type Budget struct {
	Min float64 `bson:"min" json:"min"`
	Max float64 `bson:"max" json:"max"`
}

type Lead struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Name               string              `bson:"name" json:"name"`
	Email              string              `bson:"email" json:"email"`
	Phone              string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Source             string              `bson:"source" json:"source"`
	Status             string              `bson:"status" json:"status"`
	Priority           string              `bson:"priority" json:"priority"`
	InterestedIn       string              `bson:"interestedIn" json:"interestedIn"`
	Budget             *Budget             `bson:"budget,omitempty" json:"budget,omitempty"`
	PropertyTypes      []string            `bson:"propertyTypes" json:"propertyTypes"`
	PreferredLocations []string            `bson:"preferredLocations" json:"preferredLocations"`
	Timeline           string              `bson:"timeline" json:"timeline"`
	Property           *primitive.ObjectID `bson:"property,omitempty" json:"property,omitempty"`
	Message            string              `bson:"message,omitempty" json:"message,omitempty"`
	Notes              string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Activities         []Activity          `bson:"activities" json:"activities"`
	AssignedTo         *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Tags               []string            `bson:"tags" json:"tags"`
	LastContactedAt    *time.Time          `bson:"lastContactedAt,omitempty" json:"lastContactedAt,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (l *Lead) Normalize() {
	l.Email = lower(l.Email)
	l.Source = lower(l.Source)
	l.Status = lower(l.Status)
	l.Priority = lower(l.Priority)
	l.InterestedIn = lower(l.InterestedIn)
	l.Timeline = lower(l.Timeline)
	if l.Source == "" {
		l.Source = "website"
	}
	if l.Status == "" {
		l.Status = LeadNew
	}
	if l.Priority == "" {
		l.Priority = "medium"
	}
	if l.InterestedIn == "" {
		l.InterestedIn = "buying"
	}
	if l.Timeline == "" {
		l.Timeline = "just_browsing"
	}
	if l.PropertyTypes == nil {
		l.PropertyTypes = []string{}
	}
	if l.PreferredLocations == nil {
		l.PreferredLocations = []string{}
	}
	if l.Activities == nil {
		l.Activities = []Activity{}
	}
	if l.Tags == nil {
		l.Tags = []string{}
	}
}

func (l *Lead) Validate() ValidationErrors {
	var errs ValidationErrors

	if errs.required("name", l.Name, "Please provide a name") {
		errs.maxLength("name", l.Name, NameMaxLength, "Name")
	}
	errs.email("email", l.Email)
	errs.oneOf("source", l.Source, LeadSources)
	errs.oneOf("status", l.Status, LeadStatuses)
	errs.oneOf("priority", l.Priority, LeadPriorities)
	errs.oneOf("interestedIn", l.InterestedIn, LeadInterests)
	errs.oneOf("timeline", l.Timeline, LeadTimelines)
	errs.maxLength("message", l.Message, LeadMessageMaxLength, "Message")
	if l.Budget != nil {
		errs.nonNegative("budget.min", l.Budget.Min)
		errs.nonNegative("budget.max", l.Budget.Max)
		if l.Budget.Max > 0 && l.Budget.Min > l.Budget.Max {
			errs.add("budget", "budget.min cannot exceed budget.max")
		}
	}
	for i, a := range l.Activities {
		errs.oneOf(fmt.Sprintf("activities[%d].type", i), a.Type, LeadActivityTypes)
	}
	return errs
}

// Log appends an activity entry.
func (l *Lead) Log(kind, description string, by *primitive.ObjectID, at time.Time) {
	l.Activities = append(l.Activities, Activity{Type: kind, Description: description, PerformedBy: by, CreatedAt: at})
	if kind == ActivityCall || kind == "email" || kind == "meeting" {
		t := at
		l.LastContactedAt = &t
	}
}

// ChangeStatus sets the status and records the transition. Any status may
// follow any other; an unchanged status records nothing.
func (l *Lead) ChangeStatus(status string, by *primitive.ObjectID, at time.Time) bool {
	status = lower(status)
	if status == "" || status == l.Status {
		return false
	}
	old := l.Status
	l.Status = status
	l.Log(ActivityStatusChange, fmt.Sprintf("Status changed from %s to %s", old, status), by, at)
	return true
}
