package controllers

import (
	"net/http"
	"time"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/middleware"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func GetLeads(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		plan := query.Translate(r.URL.Query(), query.Leads, scopeFor(actor, "assignedTo"))
		leads := []models.Lead{}
		data, count, total, err := findPage(r.Context(), d.coll(store.Leads), plan, &leads)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, listResponse(plan, total, count, data))
	}
}

func GetLeadStats(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		coll := d.coll(store.Leads)
		scope := scopeFor(actor, "assignedTo")

		byStatus, err := coll.GroupBy(r.Context(), scope, "status", "")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		total, err := coll.Count(r.Context(), scope)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		thisMonth, err := coll.Count(r.Context(), and(scope, bson.M{"createdAt": bson.M{"$gte": monthStart(d.now(), 0)}}))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, map[string]interface{}{"byStatus": byStatus, "total": total, "thisMonth": thisMonth})
	}
}

func GetLead(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lead, _, err := d.assignedLead(r, "view")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, lead)
	}
}

func CreateLead(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var lead models.Lead
		if err := decodeJSON(w, r, &lead); err != nil {
			d.handleError(w, r, err)
			return
		}
		if lead.AssignedTo == nil || !actor.IsAdmin() {
			lead.AssignedTo = &actor.ID
		}
		now := d.now()
		lead.Activities = nil
		lead.Normalize()
		lead.Log(models.ActivityCreated, "Lead created", &actor.ID, now)
		if err := d.insertLead(r, &lead, now); err != nil {
			d.handleError(w, r, err)
			return
		}
		created(w, lead)
	}
}

// UpdateLead merges the body into the stored lead. A status change is
// recorded as an activity; activities themselves are only added through
// the activity endpoint.
func UpdateLead(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lead, actor, err := d.assignedLead(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		updated := *lead
		if err := unmarshalBody(body, &updated); err != nil {
			d.handleError(w, r, err)
			return
		}
		newStatus := updated.Status
		updated.ID = lead.ID
		updated.Status = lead.Status
		updated.Activities = lead.Activities
		updated.CreatedAt = lead.CreatedAt
		if !actor.IsAdmin() {
			updated.AssignedTo = lead.AssignedTo
		}

		now := d.now()
		updated.Normalize()
		updated.ChangeStatus(newStatus, &actor.ID, now)
		if err := d.replaceLead(r, &updated, now); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, updated)
	}
}

func UpdateLeadStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lead, actor, err := d.assignedLead(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		if req.Status == "" {
			d.handleError(w, r, apperr.BadRequest("Status is required"))
			return
		}

		now := d.now()
		oldStatus := lead.Status
		lead.ChangeStatus(req.Status, &actor.ID, now)
		if err := d.replaceLead(r, lead, now); err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, models.APIResponse{
			Success: true,
			Message: "Status changed from " + oldStatus + " to " + lead.Status,
			Data:    lead,
		})
	}
}

func AddLeadActivity(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lead, actor, err := d.assignedLead(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		if req.Type == "" {
			req.Type = models.ActivityNote
		}
		if req.Description == "" {
			d.handleError(w, r, apperr.BadRequest("Please provide an activity description"))
			return
		}

		now := d.now()
		lead.Log(req.Type, req.Description, &actor.ID, now)
		if err := d.replaceLead(r, lead, now); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, lead)
	}
}

func DeleteLead(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id", "Lead")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		n, err := d.coll(store.Leads).Delete(r.Context(), store.ByID(id))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if n == 0 {
			d.handleError(w, r, apperr.NotFound("Lead not found"))
			return
		}
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Lead deleted successfully"})
	}
}

type inquiryRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	PropertyID   string `json:"propertyId"`
	Source       string `json:"source"`
	InterestedIn string `json:"interestedIn"`
}

// CreatePublicLead stores an inquiry from the public site. When it names a
// property, that property's inquiry counter is bumped on a best-effort basis.
func CreatePublicLead(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inquiryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		lead := models.Lead{
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Message:      req.Message,
			Source:       req.Source,
			Status:       models.LeadNew,
			InterestedIn: req.InterestedIn,
		}
		if lead.InterestedIn == "" {
			lead.InterestedIn = "general"
		}
		if req.PropertyID != "" {
			propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
			if err != nil {
				d.handleError(w, r, models.ValidationErrors{{Field: "propertyId", Message: "propertyId is not a valid id"}})
				return
			}
			lead.Property = &propertyID
		}

		now := d.now()
		lead.Normalize()
		lead.Log(models.ActivityCreated, "Lead created from website inquiry", nil, now)
		if err := d.insertLead(r, &lead, now); err != nil {
			d.handleError(w, r, err)
			return
		}

		if lead.Property != nil {
			if _, err := d.coll(store.Properties).Update(r.Context(), store.ByID(*lead.Property), bson.M{"$inc": bson.M{"inquiries": 1}}); err != nil {
				metrics.SideEffectFailed("property_inquiry")
				d.Log.Warn("failed to count property inquiry", zap.Error(err))
			}
		}
		respond(w, http.StatusCreated, models.APIResponse{
			Success: true,
			Message: "Thank you for your inquiry! We will contact you soon.",
			Data:    map[string]interface{}{"id": lead.ID},
		})
	}
}

// assignedLead loads the lead in the route and checks the caller is its
// assignee or an admin.
func (d *Deps) assignedLead(r *http.Request, action string) (*models.Lead, *middleware.Actor, error) {
	actor, err := currentActor(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := pathID(r, "id", "Lead")
	if err != nil {
		return nil, nil, err
	}
	var lead models.Lead
	if err := findOne(r.Context(), d.coll(store.Leads), store.ByID(id), &lead, "Lead"); err != nil {
		return nil, nil, err
	}
	if !actor.Owns(lead.AssignedTo) {
		return nil, nil, apperr.Forbidden("Not authorized to " + action + " this lead")
	}
	return &lead, actor, nil
}

func (d *Deps) insertLead(r *http.Request, lead *models.Lead, now time.Time) error {
	lead.Phone = utils.NormalizePhone(lead.Phone, d.Cfg.PhoneRegion)
	if errs := lead.Validate(); len(errs) > 0 {
		return errs
	}
	lead.ID = primitive.NewObjectID()
	lead.CreatedAt, lead.UpdatedAt = now, now
	if err := d.coll(store.Leads).Insert(r.Context(), lead); err != nil {
		return err
	}
	metrics.EntityCreated("lead")
	return nil
}

func (d *Deps) replaceLead(r *http.Request, lead *models.Lead, now time.Time) error {
	lead.Phone = utils.NormalizePhone(lead.Phone, d.Cfg.PhoneRegion)
	if errs := lead.Validate(); len(errs) > 0 {
		return errs
	}
	lead.UpdatedAt = now
	return d.coll(store.Leads).Replace(r.Context(), store.ByID(lead.ID), lead)
}

// and joins two filters, either of which may be empty.
func and(a, b bson.M) bson.M {
	switch {
	case len(a) == 0:
		return b
	case len(b) == 0:
		return a
	}
	return bson.M{"$and": bson.A{a, b}}
}

// monthStart is the first instant of the month offset months from now, UTC.
func monthStart(now time.Time, offset int) time.Time {
	return time.Date(now.Year(), now.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
}

func dayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
