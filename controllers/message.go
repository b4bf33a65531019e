package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const messagePageLimit = 50

var recentFirst = bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}

func GetConversations(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		params := r.URL.Query()
		plan := query.Translate(params, query.Conversations, scopeFor(actor, "agent"))
		if params.Get("sort") == "" {
			plan.Sort = recentFirst
		}
		conversations := []models.Conversation{}
		data, count, total, err := findPage(r.Context(), d.coll(store.Conversations), plan, &conversations)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, listResponse(plan, total, count, data))
	}
}

// GetConversation returns a conversation with one page of its messages,
// oldest first, and marks the client's messages as read.
func GetConversation(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversation, err := d.ownedConversation(r, "view")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		page, limit := query.Window(r.URL.Query(), messagePageLimit)

		messages := []models.Message{}
		err = d.coll(store.Messages).Find(r.Context(), bson.M{"conversation": conversation.ID}, store.FindOptions{
			Sort:  bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Skip:  int64((page - 1) * limit),
			Limit: int64(limit),
		}, &messages)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}

		now := d.now()
		_, err = d.coll(store.Messages).UpdateMany(r.Context(),
			bson.M{"conversation": conversation.ID, "sender": models.SenderClient, "read": false},
			bson.M{"$set": bson.M{"read": true, "readAt": now}})
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if conversation.UnreadCount != 0 {
			if _, err := d.coll(store.Conversations).Update(r.Context(), store.ByID(conversation.ID), bson.M{"$set": bson.M{"unreadCount": 0}}); err != nil {
				d.handleError(w, r, err)
				return
			}
			conversation.UnreadCount = 0
		}
		ok(w, map[string]interface{}{"conversation": conversation, "messages": messages})
	}
}

type conversationRequest struct {
	models.Conversation
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// CreateConversation opens a conversation owned by the caller, optionally
// with a first message.
func CreateConversation(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req conversationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		conversation := req.Conversation
		if conversation.Agent == nil || !actor.IsAdmin() {
			conversation.Agent = &actor.ID
		}
		conversation.LastMessage = nil
		conversation.UnreadCount = 0
		conversation.Status = ""
		conversation.Normalize()
		conversation.Client.Phone = utils.NormalizePhone(conversation.Client.Phone, d.Cfg.PhoneRegion)

		errs := conversation.Validate()
		var first *models.Message
		if req.Message != "" {
			first = &models.Message{Sender: req.Sender, Content: req.Message}
			if first.Sender == "" {
				first.Sender = models.SenderAgent
			}
			first.Normalize()
			errs = append(errs, first.Validate()...)
		}
		if len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		now := d.now()
		conversation.ID = primitive.NewObjectID()
		conversation.CreatedAt, conversation.UpdatedAt = now, now
		conversations := d.coll(store.Conversations)
		if err := conversations.Insert(r.Context(), &conversation); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("conversation")

		if first != nil {
			if first.Sender == models.SenderAgent {
				first.SenderID = &actor.ID
			}
			if err := d.postMessage(r.Context(), conversation.ID, first, now); err != nil {
				d.handleError(w, r, err)
				return
			}
			if err := conversations.FindOne(r.Context(), store.ByID(conversation.ID), &conversation); err != nil {
				d.handleError(w, r, err)
				return
			}
		}
		created(w, conversation)
	}
}

func SendMessage(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversation, err := d.ownedConversation(r, "send messages in")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var msg models.Message
		if err := decodeJSON(w, r, &msg); err != nil {
			d.handleError(w, r, err)
			return
		}
		if msg.Sender == "" {
			msg.Sender = models.SenderAgent
		}
		msg.Normalize()
		msg.SenderID = nil
		if msg.Sender == models.SenderAgent {
			msg.SenderID = &actor.ID
		}
		if errs := msg.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}
		if err := d.postMessage(r.Context(), conversation.ID, &msg, d.now()); err != nil {
			d.handleError(w, r, err)
			return
		}
		created(w, msg)
	}
}

// postMessage stores msg and then refreshes the conversation's last-message
// snapshot and unread counter. The two writes happen in that order.
func (d *Deps) postMessage(ctx context.Context, conversationID primitive.ObjectID, msg *models.Message, now time.Time) error {
	msg.ID = primitive.NewObjectID()
	msg.Conversation = conversationID
	msg.Read = false
	msg.ReadAt = nil
	msg.CreatedAt = now
	if err := d.coll(store.Messages).Insert(ctx, msg); err != nil {
		return err
	}
	metrics.EntityCreated("message")

	matched, err := d.coll(store.Conversations).Update(ctx, store.ByID(conversationID), models.ConversationUpdate(msg))
	if err != nil {
		return err
	}
	if matched == 0 {
		return apperr.NotFound("Conversation not found")
	}
	return nil
}

func GetUnreadCount(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		filter := and(scopeFor(actor, "agent"), bson.M{"status": models.ConversationActive})
		total, err := d.coll(store.Conversations).Sum(r.Context(), filter, "unreadCount")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, map[string]interface{}{"unreadCount": int64(total)})
	}
}

// DeleteConversation archives rather than removes.
func DeleteConversation(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversation, err := d.ownedConversation(r, "delete")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		_, err = d.coll(store.Conversations).Update(r.Context(), store.ByID(conversation.ID),
			bson.M{"$set": bson.M{"status": models.ConversationArchived, "updatedAt": d.now()}})
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Conversation archived successfully"})
	}
}

func (d *Deps) ownedConversation(r *http.Request, action string) (*models.Conversation, error) {
	actor, err := currentActor(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id", "Conversation")
	if err != nil {
		return nil, err
	}
	var conversation models.Conversation
	if err := findOne(r.Context(), d.coll(store.Conversations), store.ByID(id), &conversation, "Conversation"); err != nil {
		return nil, err
	}
	if !actor.Owns(conversation.Agent) {
		return nil, apperr.Forbidden("Not authorized to " + action + " this conversation")
	}
	return &conversation, nil
}
