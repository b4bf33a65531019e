package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationSpam     = "spam"

	SenderClient = "client"
	SenderAgent  = "agent"

	MessageMaxLength = 5000
)

var (
	ConversationStatuses = []string{ConversationActive, ConversationArchived, ConversationSpam}
	MessageSenders       = []string{SenderClient, SenderAgent}
)

// LastMessage is the denormalized summary of a conversation's newest message.
type LastMessage struct {
	Content   string    `bson:"content" json:"content"`
	Sender    string    `bson:"sender" json:"sender"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Conversation struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Client      ClientInfo          `bson:"client" json:"client"`
	Subject     string              `bson:"subject,omitempty" json:"subject,omitempty"`
	Property    *primitive.ObjectID `bson:"property,omitempty" json:"property,omitempty"`
	Agent       *primitive.ObjectID `bson:"agent,omitempty" json:"agent,omitempty"`
	Lead        *primitive.ObjectID `bson:"lead,omitempty" json:"lead,omitempty"`
	LastMessage *LastMessage        `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCount int                 `bson:"unreadCount" json:"unreadCount"`
	Status      string              `bson:"status" json:"status"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (c *Conversation) Normalize() {
	c.Status = lower(c.Status)
	c.Client.Email = lower(c.Client.Email)
	if c.Status == "" {
		c.Status = ConversationActive
	}
}

func (c *Conversation) Validate() ValidationErrors {
	var errs ValidationErrors
	errs.required("client.name", c.Client.Name, "Please provide the client's name")
	errs.email("client.email", c.Client.Email)
	errs.oneOf("status", c.Status, ConversationStatuses)
	errs.maxLength("subject", c.Subject, 200, "Subject")
	return errs
}

type Attachment struct {
	Name string `bson:"name" json:"name"`
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type,omitempty" json:"type,omitempty"`
	Size int64  `bson:"size,omitempty" json:"size,omitempty"`
}

type Message struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Conversation primitive.ObjectID  `bson:"conversation" json:"conversation"`
	Sender       string              `bson:"sender" json:"sender"`
	SenderID     *primitive.ObjectID `bson:"senderId,omitempty" json:"senderId,omitempty"`
	Content      string              `bson:"content" json:"content"`
	Attachments  []Attachment        `bson:"attachments" json:"attachments"`
	Read         bool                `bson:"read" json:"read"`
	ReadAt       *time.Time          `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
}

func (m *Message) Normalize() {
	m.Sender = lower(m.Sender)
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
	}
}

func (m *Message) Validate() ValidationErrors {
	var errs ValidationErrors
	errs.oneOf("sender", m.Sender, MessageSenders)
	if errs.required("content", m.Content, "Message content is required") {
		errs.maxLength("content", m.Content, MessageMaxLength, "Message")
	}
	for i, a := range m.Attachments {
		if a.URL == "" {
			errs.add(fmt.Sprintf("attachments[%d].url", i), "Attachment url is required")
		}
	}
	return errs
}

// ConversationUpdate is the write applied to a conversation after msg is
// stored: the last-message snapshot is overwritten and, for client messages,
// the agent's unread counter goes up by one.
func ConversationUpdate(msg *Message) bson.M {
	update := bson.M{
		"$set": bson.M{
			"lastMessage": LastMessage{Content: msg.Content, Sender: msg.Sender, Timestamp: msg.CreatedAt},
			"updatedAt":   msg.CreatedAt,
		},
	}
	if msg.Sender == SenderClient {
		update["$inc"] = bson.M{"unreadCount": 1}
	}
	return update
}
