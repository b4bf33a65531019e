package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dcode-github/realestate_platform/backend/utils"
	"github.com/mmcloughlin/geohash"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusForSale       = "for-sale"
	StatusForRent       = "for-rent"
	StatusSold          = "sold"
	StatusRented        = "rented"
	StatusPending       = "pending"
	StatusOffMarket     = "off-market"
	StatusPendingReview = "pending review"

	ListingSale = "sale"
	ListingRent = "rent"

	TitleMaxLength       = 100
	DescriptionMaxLength = 5000
)

var (
	PropertyStatuses = []string{StatusForSale, StatusForRent, StatusSold, StatusRented, StatusPending, StatusOffMarket, StatusPendingReview}
	PropertyTypes    = []string{"house", "apartment", "villa", "penthouse", "condo", "townhouse", "land", "commercial", "estate", "plot", "office", "shop", "warehouse", "room", "studio", "farmhouse"}
	ListingTypes     = []string{ListingSale, ListingRent}
)

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

type Property struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Price        float64             `bson:"price" json:"price"`
	PropertyType string              `bson:"propertyType" json:"propertyType"`
	Status       string              `bson:"status" json:"status"`
	ListingType  string              `bson:"listingType" json:"listingType"`
	Featured     bool                `bson:"featured" json:"featured"`
	Address      Address             `bson:"address" json:"address"`
	Location     *GeoPoint           `bson:"location,omitempty" json:"location,omitempty"`
	Geohash      string              `bson:"geohash,omitempty" json:"geohash,omitempty"`
	Bedrooms     int                 `bson:"bedrooms" json:"bedrooms"`
	Bathrooms    float64             `bson:"bathrooms" json:"bathrooms"`
	Area         float64             `bson:"area" json:"area"`
	LotSize      float64             `bson:"lotSize,omitempty" json:"lotSize,omitempty"`
	YearBuilt    int                 `bson:"yearBuilt,omitempty" json:"yearBuilt,omitempty"`
	Parking      int                 `bson:"parking" json:"parking"`
	Features     []string            `bson:"features" json:"features"`
	Amenities    []string            `bson:"amenities" json:"amenities"`
	Images       []string            `bson:"images" json:"images"`
	Views        int                 `bson:"views" json:"views"`
	Favorites    int                 `bson:"favorites" json:"favorites"`
	Inquiries    int                 `bson:"inquiries" json:"inquiries"`
	Agent        *primitive.ObjectID `bson:"agent,omitempty" json:"agent,omitempty"`
	Slug         string              `bson:"slug,omitempty" json:"slug"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// FullAddress joins the non-empty street, city, state and zip.
func (p Property) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Address.Street, p.Address.City, p.Address.State, p.Address.ZipCode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// PricePerSqft is price over area rounded to the nearest unit, or 0 without
// an area.
func (p Property) PricePerSqft() int {
	if p.Area <= 0 {
		return 0
	}
	return int(math.Round(p.Price / p.Area))
}

func (p Property) MarshalJSON() ([]byte, error) {
	type property Property
	return json.Marshal(struct {
		property
		FullAddress  string `json:"fullAddress"`
		PricePerSqft int    `json:"pricePerSqft"`
	}{property(p), p.FullAddress(), p.PricePerSqft()})
}

// Normalize canonicalises enumerations, fills defaults and derives the
// geohash. It does not touch the slug.
func (p *Property) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.PropertyType = lower(p.PropertyType)
	p.Status = normalizeStatus(p.Status)
	p.ListingType = lower(p.ListingType)
	if p.Status == "" {
		p.Status = StatusForSale
	}
	if p.ListingType == "" {
		p.ListingType = ListingSale
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	p.Geohash = ""
	if p.Location != nil && len(p.Location.Coordinates) == 2 {
		p.Location.Type = "Point"
		p.Geohash = geohash.Encode(p.Location.Coordinates[1], p.Location.Coordinates[0])
	}
}

// normalizeStatus accepts display forms such as "For Sale" alongside the
// stored forms.
func normalizeStatus(s string) string {
	s = lower(s)
	for _, known := range PropertyStatuses {
		if s == known {
			return s
		}
	}
	dashed := strings.ReplaceAll(s, " ", "-")
	for _, known := range PropertyStatuses {
		if dashed == known {
			return dashed
		}
	}
	return s
}

// RefreshSlug derives the slug from the title and id. Call it after the id
// is assigned and whenever the title changes.
func (p *Property) RefreshSlug() {
	base := utils.Slugify(p.Title)
	if base == "" {
		p.Slug = p.ID.Hex()
		return
	}
	p.Slug = base + "-" + p.ID.Hex()
}

func (p *Property) Validate() ValidationErrors {
	var errs ValidationErrors

	if errs.required("title", p.Title, "Please provide a property title") {
		errs.maxLength("title", p.Title, TitleMaxLength, "Title")
	}
	if errs.required("description", p.Description, "Please provide a description") {
		errs.maxLength("description", p.Description, DescriptionMaxLength, "Description")
	}
	if errs.required("propertyType", p.PropertyType, "Please specify property type") {
		errs.oneOf("propertyType", p.PropertyType, PropertyTypes)
	}
	errs.oneOf("status", p.Status, PropertyStatuses)
	errs.oneOf("listingType", p.ListingType, ListingTypes)

	errs.nonNegative("price", p.Price)
	errs.nonNegative("bedrooms", float64(p.Bedrooms))
	errs.nonNegative("bathrooms", p.Bathrooms)
	errs.nonNegative("area", p.Area)
	errs.nonNegative("lotSize", p.LotSize)
	errs.nonNegative("parking", float64(p.Parking))
	if p.YearBuilt != 0 && (p.YearBuilt < 1800 || p.YearBuilt > time.Now().Year()+5) {
		errs.add("yearBuilt", "yearBuilt is out of range")
	}

	errs.required("address.city", p.Address.City, "Please provide a city")
	errs.required("address.state", p.Address.State, "Please provide a state")

	if p.Location != nil {
		c := p.Location.Coordinates
		if len(c) != 2 || c[0] < -180 || c[0] > 180 || c[1] < -90 || c[1] > 90 {
			errs.add("location", "location must be [longitude, latitude]")
		}
	}
	return errs
}

// RequiredPropertyKeys must be present in a create payload even when zero.
var RequiredPropertyKeys = []string{"price", "bedrooms", "bathrooms", "area"}
