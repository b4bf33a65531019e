package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// flexNumber accepts both 1200 and "1200"; form posts send either.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = flexNumber(v)
	return nil
}

type listingRequest struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PropertyType string     `json:"propertyType"`
	Purpose      string     `json:"purpose"`
	Title        string     `json:"title"`
	Location     string     `json:"location"`
	City         string     `json:"city"`
	Price        flexNumber `json:"price"`
	Area         flexNumber `json:"area"`
	AreaUnit     string     `json:"areaUnit"`
	Bedrooms     flexNumber `json:"bedrooms"`
	Bathrooms    flexNumber `json:"bathrooms"`
	Description  string     `json:"description"`
	Features     []string   `json:"features"`
	Images       []string   `json:"images"`
}

func formatAmount(v flexNumber) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// summary is the human readable description stored on the follow-up lead.
func (req listingRequest) summary() string {
	what := req.Title
	if what == "" {
		what = req.PropertyType
	}
	where := req.City
	if where == "" {
		where = req.Location
	}
	unit := req.AreaUnit
	if unit == "" {
		unit = "sqft"
	}
	return fmt.Sprintf("Submitted %s listing: %s in %s. Price: $%s. Area: %s %s.",
		req.Purpose, what, where, formatAmount(req.Price), formatAmount(req.Area), unit)
}

func (req listingRequest) property(now time.Time) models.Property {
	city := req.City
	if city == "" {
		city = req.Location
	}
	state := req.Location
	if state == "" {
		state = city
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = utils.TitleCase(strings.TrimSpace(req.PropertyType + " in " + city))
	}
	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = req.summary()
	}
	listingType := models.ListingSale
	if strings.EqualFold(req.Purpose, "rent") {
		listingType = models.ListingRent
	}

	p := models.Property{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Description:  description,
		Price:        float64(req.Price),
		PropertyType: req.PropertyType,
		Status:       models.StatusPendingReview,
		ListingType:  listingType,
		Address:      models.Address{City: city, State: state, Country: "USA"},
		Bedrooms:     int(req.Bedrooms),
		Bathrooms:    float64(req.Bathrooms),
		Area:         float64(req.Area),
		Features:     req.Features,
		Images:       req.Images,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p.Normalize()
	p.RefreshSlug()
	return p
}

// SubmitListing handles the public "list my property" form: it stores a
// property awaiting review and a lead that points at it. Both documents are
// validated up front; the two inserts are independent writes.
func SubmitListing(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}

		now := d.now()
		property := req.property(now)

		interest := "selling"
		if property.ListingType == models.ListingRent {
			interest = "renting"
		}
		lead := models.Lead{
			Name:         req.Name,
			Email:        req.Email,
			Phone:        utils.NormalizePhone(req.Phone, d.Cfg.PhoneRegion),
			Source:       "website",
			Status:       models.LeadNew,
			InterestedIn: interest,
			Property:     &property.ID,
			Message:      req.summary(),
		}
		lead.Normalize()
		lead.Log(models.ActivityCreated, "Lead created from listing submission", nil, now)

		errs := property.Validate()
		errs = append(errs, lead.Validate()...)
		if len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		if err := d.coll(store.Properties).Insert(r.Context(), &property); err != nil {
			d.handleError(w, r, err)
			return
		}
		lead.ID = primitive.NewObjectID()
		lead.CreatedAt, lead.UpdatedAt = now, now
		if err := d.coll(store.Leads).Insert(r.Context(), &lead); err != nil {
			d.Log.Error("listing lead not stored", zap.String("property", property.ID.Hex()), zap.Error(err))
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("property")
		metrics.EntityCreated("lead")
		d.invalidateListings()
		d.notify("listing", func(ctx context.Context) error {
			return d.Mailer.ListingSubmitted(ctx, &property, &lead)
		})

		respond(w, http.StatusCreated, models.APIResponse{
			Success: true,
			Message: "Your listing has been submitted for review!",
			Data:    map[string]interface{}{"propertyId": property.ID},
		})
	}
}

// notify sends a staff email in the background. Failures are only logged.
func (d *Deps) notify(kind string, send func(ctx context.Context) error) {
	if d.Mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			metrics.SideEffectFailed("mail_" + kind)
			d.Log.Warn("notification email failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

var _ json.Unmarshaler = (*flexNumber)(nil)
