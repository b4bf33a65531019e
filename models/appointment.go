package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

var (
	AppointmentTypes    = []string{"viewing", "meeting", "open_house", "follow_up", "closing", "inspection", "other"}
	AppointmentStatuses = []string{AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, "no_show", "rescheduled"}
	RecurrenceFrequency = []string{"daily", "weekly", "monthly"}

	clockTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ClientInfo is a contact snapshot copied onto the document.
type ClientInfo struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type Recurrence struct {
	Frequency string     `bson:"frequency" json:"frequency"`
	EndDate   *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
}

type Appointment struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title        string               `bson:"title" json:"title"`
	Description  string               `bson:"description,omitempty" json:"description,omitempty"`
	Type         string               `bson:"type" json:"type"`
	Date         time.Time            `bson:"date" json:"date"`
	StartTime    string               `bson:"startTime" json:"startTime"`
	EndTime      string               `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Duration     int                  `bson:"duration" json:"duration"`
	Property     *primitive.ObjectID  `bson:"property,omitempty" json:"property,omitempty"`
	Lead         *primitive.ObjectID  `bson:"lead,omitempty" json:"lead,omitempty"`
	Client       ClientInfo           `bson:"client" json:"client"`
	Location     string               `bson:"location,omitempty" json:"location,omitempty"`
	IsVirtual    bool                 `bson:"isVirtual" json:"isVirtual"`
	MeetingLink  string               `bson:"meetingLink,omitempty" json:"meetingLink,omitempty"`
	Status       string               `bson:"status" json:"status"`
	ReminderSent bool                 `bson:"reminderSent" json:"reminderSent"`
	ReminderTime int                  `bson:"reminderTime" json:"reminderTime"`
	Notes        string               `bson:"notes,omitempty" json:"notes,omitempty"`
	Outcome      string               `bson:"outcome,omitempty" json:"outcome,omitempty"`
	Agent        *primitive.ObjectID  `bson:"agent,omitempty" json:"agent,omitempty"`
	Attendees    []primitive.ObjectID `bson:"attendees" json:"attendees"`
	IsRecurring  bool                 `bson:"isRecurring" json:"isRecurring"`
	Recurrence   *Recurrence          `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (a *Appointment) Normalize() {
	a.Type = lower(a.Type)
	a.Status = lower(a.Status)
	a.Client.Email = lower(a.Client.Email)
	if a.Type == "" {
		a.Type = "viewing"
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	if a.Duration == 0 {
		a.Duration = 60
	}
	if a.ReminderTime == 0 {
		a.ReminderTime = 60
	}
	if a.Location == "" && !a.IsVirtual {
		a.Location = "Property Address"
	}
	if a.Attendees == nil {
		a.Attendees = []primitive.ObjectID{}
	}
}

func (a *Appointment) Validate() ValidationErrors {
	var errs ValidationErrors

	if errs.required("title", a.Title, "Please provide appointment title") {
		errs.maxLength("title", a.Title, 200, "Title")
	}
	errs.oneOf("type", a.Type, AppointmentTypes)
	errs.oneOf("status", a.Status, AppointmentStatuses)
	if a.Date.IsZero() {
		errs.add("date", "Please provide appointment date")
	}
	if errs.required("startTime", a.StartTime, "Please provide start time") && !clockTime.MatchString(a.StartTime) {
		errs.add("startTime", "startTime must be HH:MM")
	}
	if a.EndTime != "" {
		if !clockTime.MatchString(a.EndTime) {
			errs.add("endTime", "endTime must be HH:MM")
		} else if clockTime.MatchString(a.StartTime) && a.EndTime <= a.StartTime {
			errs.add("endTime", "endTime must be after startTime")
		}
	}
	errs.nonNegative("duration", float64(a.Duration))
	errs.nonNegative("reminderTime", float64(a.ReminderTime))
	if a.Client.Email != "" {
		errs.email("client.email", a.Client.Email)
	}
	if a.IsVirtual && a.MeetingLink == "" {
		errs.add("meetingLink", "Virtual appointments need a meeting link")
	}
	if a.IsRecurring {
		if a.Recurrence == nil {
			errs.add("recurrence", "Recurring appointments need a recurrence rule")
		} else {
			errs.oneOf("recurrence.frequency", a.Recurrence.Frequency, RecurrenceFrequency)
			if a.Recurrence.EndDate != nil && a.Recurrence.EndDate.Before(a.Date) {
				errs.add("recurrence.endDate", "recurrence.endDate cannot be before date")
			}
		}
	}
	return errs
}
