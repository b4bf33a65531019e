package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactReplied  = "replied"
	ContactArchived = "archived"

	ContactMessageMaxLength = 2000
)

var (
	ContactSubjects = []string{"buying", "selling", "renting", "general", "feedback"}
	ContactStatuses = []string{ContactNew, ContactRead, ContactReplied, ContactArchived}
)

// SourceInfo records where a public form was submitted from.
type SourceInfo struct {
	Page      string `bson:"page,omitempty" json:"page,omitempty"`
	Referrer  string `bson:"referrer,omitempty" json:"referrer,omitempty"`
	UserAgent string `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	IP        string `bson:"ip,omitempty" json:"ip,omitempty"`
}

type ContactSubmission struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Name       string              `bson:"name" json:"name"`
	Email      string              `bson:"email" json:"email"`
	Phone      string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject    string              `bson:"subject" json:"subject"`
	Message    string              `bson:"message" json:"message"`
	Property   *primitive.ObjectID `bson:"property,omitempty" json:"property,omitempty"`
	Status     string              `bson:"status" json:"status"`
	Notes      string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Source     SourceInfo          `bson:"source" json:"source"`
	RepliedAt  *time.Time          `bson:"repliedAt,omitempty" json:"repliedAt,omitempty"`
	ArchivedAt *time.Time          `bson:"archivedAt,omitempty" json:"archivedAt,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (c *ContactSubmission) Normalize() {
	c.Email = lower(c.Email)
	c.Subject = lower(c.Subject)
	c.Status = lower(c.Status)
	if c.Subject == "" {
		c.Subject = "general"
	}
	if c.Status == "" {
		c.Status = ContactNew
	}
}

func (c *ContactSubmission) Validate() ValidationErrors {
	var errs ValidationErrors
	if errs.required("name", c.Name, "Please provide your name") {
		errs.maxLength("name", c.Name, NameMaxLength, "Name")
	}
	errs.email("email", c.Email)
	errs.oneOf("subject", c.Subject, ContactSubjects)
	if errs.required("message", c.Message, "Please provide a message") {
		errs.maxLength("message", c.Message, ContactMessageMaxLength, "Message")
	}
	errs.oneOf("status", c.Status, ContactStatuses)
	return errs
}

// SetStatus moves the submission to status, stamping repliedAt or
// archivedAt the first time those states are reached.
func (c *ContactSubmission) SetStatus(status string, at time.Time) {
	c.Status = lower(status)
	switch c.Status {
	case ContactReplied:
		if c.RepliedAt == nil {
			c.RepliedAt = &at
		}
	case ContactArchived:
		if c.ArchivedAt == nil {
			c.ArchivedAt = &at
		}
	}
}
