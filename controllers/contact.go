package controllers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// inquiryTypes maps the contact form's inquiry options onto subjects.
var inquiryTypes = map[string]string{
	"buy":   "buying",
	"sell":  "selling",
	"rent":  "renting",
	"other": "general",
}

type contactRequest struct {
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Subject     string              `json:"subject"`
	InquiryType string              `json:"inquiryType"`
	Message     string              `json:"message"`
	Property    *primitive.ObjectID `json:"property"`
	PropertyID  *primitive.ObjectID `json:"propertyId"`
	Page        string              `json:"page"`
}

func (req contactRequest) submission() models.ContactSubmission {
	subject := strings.ToLower(strings.TrimSpace(req.Subject))
	if subject == "" {
		subject = strings.ToLower(strings.TrimSpace(req.InquiryType))
	}
	if mapped, ok := inquiryTypes[subject]; ok {
		subject = mapped
	}
	property := req.Property
	if property == nil {
		property = req.PropertyID
	}
	if property != nil && property.IsZero() {
		property = nil
	}
	return models.ContactSubmission{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    req.Phone,
		Subject:  subject,
		Message:  strings.TrimSpace(req.Message),
		Property: property,
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SubmitContact stores a public contact form and notifies staff by mail.
func SubmitContact(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactRequest
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		contact := req.submission()
		contact.Status = ""
		contact.Normalize()
		contact.Phone = utils.NormalizePhone(contact.Phone, d.Cfg.PhoneRegion)
		if errs := contact.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		page := req.Page
		if page == "" {
			page = r.Header.Get("Origin")
		}
		contact.Source = models.SourceInfo{
			Page:      page,
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
			IP:        clientIP(r),
		}
		now := d.now()
		contact.ID = primitive.NewObjectID()
		contact.CreatedAt, contact.UpdatedAt = now, now
		if err := d.coll(store.Contacts).Insert(r.Context(), &contact); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("contact")
		d.notify("contact", func(ctx context.Context) error {
			return d.Mailer.ContactReceived(ctx, &contact)
		})

		respond(w, http.StatusCreated, models.APIResponse{
			Success: true,
			Message: "Contact form submitted successfully",
			Data:    contact,
		})
	}
}

func GetContacts(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan := query.Translate(r.URL.Query(), query.Contacts, nil)
		contacts := []models.ContactSubmission{}
		data, count, total, err := findPage(r.Context(), d.coll(store.Contacts), plan, &contacts)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, listResponse(plan, total, count, data))
	}
}

func GetContact(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact, err := d.contactByID(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, contact)
	}
}

type contactUpdate struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateContact changes the workflow status and staff notes only.
func UpdateContact(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact, err := d.contactByID(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req contactUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		if req.Status == nil && req.Notes == nil {
			d.handleError(w, r, apperr.BadRequest("Nothing to update"))
			return
		}

		now := d.now()
		if req.Status != nil {
			contact.SetStatus(*req.Status, now)
		}
		if req.Notes != nil {
			contact.Notes = *req.Notes
		}
		if errs := contact.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}
		contact.UpdatedAt = now
		if err := d.coll(store.Contacts).Replace(r.Context(), store.ByID(contact.ID), contact); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, contact)
	}
}

func DeleteContact(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id", "Contact submission")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		n, err := d.coll(store.Contacts).Delete(r.Context(), store.ByID(id))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if n == 0 {
			d.handleError(w, r, apperr.NotFound("Contact submission not found"))
			return
		}
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Contact submission deleted"})
	}
}

func (d *Deps) contactByID(r *http.Request) (*models.ContactSubmission, error) {
	id, err := pathID(r, "id", "Contact submission")
	if err != nil {
		return nil, err
	}
	var contact models.ContactSubmission
	if err := findOne(r.Context(), d.coll(store.Contacts), store.ByID(id), &contact, "Contact submission"); err != nil {
		return nil, err
	}
	return &contact, nil
}
