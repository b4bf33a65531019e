package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/cache"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const featuredLimit = 6

// GetProperties is the public catalogue. Responses are cached per query
// string until the next property write.
func GetProperties(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		cacheKey := cache.Key("properties", params)
		if cached, hit := d.Cache.Get(r.Context(), cacheKey); hit {
			w.Header().Set("Content-Type", "application/json")
			w.Write(cached)
			return
		}

		plan := query.Translate(params, query.Properties, nil)
		properties := []models.Property{}
		data, count, total, err := findPage(r.Context(), d.coll(store.Properties), plan, &properties)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		body, err := json.Marshal(listResponse(plan, total, count, data))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		d.Cache.Set(r.Context(), cacheKey, body)

		w.Header().Set("Content-Type", "application/json")
		w.Write(append(body, '\n'))
	}
}

func GetFeaturedProperties(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		properties := []models.Property{}
		err := d.coll(store.Properties).Find(r.Context(), bson.M{"featured": true},
			store.FindOptions{Sort: query.DefaultSort, Limit: featuredLimit}, &properties)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, countOnly(len(properties), properties))
	}
}

func GetAgentProperties(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := pathID(r, "agentId", "Agent")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		properties := []models.Property{}
		err = d.coll(store.Properties).Find(r.Context(), bson.M{"agent": agentID},
			store.FindOptions{Sort: query.DefaultSort}, &properties)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, countOnly(len(properties), properties))
	}
}

func GetProperty(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id", "Property")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		d.viewProperty(w, r, store.ByID(id))
	}
}

func GetPropertyBySlug(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.viewProperty(w, r, bson.M{"slug": mux.Vars(r)["slug"]})
	}
}

// viewProperty returns one property and bumps its view counter. A failed
// increment is logged and the fetch still succeeds.
func (d *Deps) viewProperty(w http.ResponseWriter, r *http.Request, filter bson.M) {
	coll := d.coll(store.Properties)
	var property models.Property
	if err := findOne(r.Context(), coll, filter, &property, "Property"); err != nil {
		d.handleError(w, r, err)
		return
	}

	matched, err := coll.Update(r.Context(), store.ByID(property.ID), bson.M{"$inc": bson.M{"views": 1}})
	if err != nil || matched == 0 {
		metrics.SideEffectFailed("property_view")
		d.Log.Warn("failed to record property view", zap.String("property", property.ID.Hex()), zap.Error(err))
	} else {
		property.Views++
		metrics.PropertyViews.Inc()
	}
	ok(w, property)
}

func CreateProperty(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var keys map[string]json.RawMessage
		if err := unmarshalBody(body, &keys); err != nil {
			d.handleError(w, r, err)
			return
		}
		var property models.Property
		if err := unmarshalBody(body, &property); err != nil {
			d.handleError(w, r, err)
			return
		}

		property.Normalize()
		errs := models.RequireKeys(keys, models.RequiredPropertyKeys...)
		errs = append(errs, property.Validate()...)
		if len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		now := d.now()
		property.ID = primitive.NewObjectID()
		property.Agent = &actor.ID
		property.Views, property.Favorites, property.Inquiries = 0, 0, 0
		property.CreatedAt, property.UpdatedAt = now, now
		property.RefreshSlug()

		if err := d.coll(store.Properties).Insert(r.Context(), &property); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("property")
		d.invalidateListings()
		created(w, property)
	}
}

func UpdateProperty(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, err := d.ownedProperty(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		updated := *property
		if err := unmarshalBody(body, &updated); err != nil {
			d.handleError(w, r, err)
			return
		}
		// server-owned fields
		updated.ID = property.ID
		updated.Agent = property.Agent
		updated.Views, updated.Favorites, updated.Inquiries = property.Views, property.Favorites, property.Inquiries
		updated.CreatedAt = property.CreatedAt

		updated.Normalize()
		if errs := updated.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}
		updated.RefreshSlug()
		updated.UpdatedAt = d.now()

		if err := d.coll(store.Properties).Replace(r.Context(), store.ByID(updated.ID), &updated); err != nil {
			d.handleError(w, r, err)
			return
		}
		d.invalidateListings()
		ok(w, updated)
	}
}

func DeleteProperty(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, err := d.ownedProperty(r, "delete")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if _, err := d.coll(store.Properties).Delete(r.Context(), store.ByID(property.ID)); err != nil {
			d.handleError(w, r, err)
			return
		}
		d.invalidateListings()
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Property deleted successfully"})
	}
}

// AddPropertyImages appends already uploaded image URLs to a property.
func AddPropertyImages(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, err := d.ownedProperty(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req struct {
			Images []string `json:"images"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		if len(req.Images) == 0 {
			d.handleError(w, r, apperr.BadRequest("Please provide at least one image"))
			return
		}

		property.Images = append(property.Images, req.Images...)
		property.UpdatedAt = d.now()
		if err := d.coll(store.Properties).Replace(r.Context(), store.ByID(property.ID), property); err != nil {
			d.handleError(w, r, err)
			return
		}
		d.invalidateListings()
		ok(w, property)
	}
}

// ownedProperty loads the property named in the route and checks that the
// caller is its agent or an admin.
func (d *Deps) ownedProperty(r *http.Request, action string) (*models.Property, error) {
	actor, err := currentActor(r)
	if err != nil {
		return nil, err
	}
	id, err := pathID(r, "id", "Property")
	if err != nil {
		return nil, err
	}
	var property models.Property
	if err := findOne(r.Context(), d.coll(store.Properties), store.ByID(id), &property, "Property"); err != nil {
		return nil, err
	}
	if !actor.Owns(property.Agent) {
		return nil, apperr.Forbidden("Not authorized to " + action + " this property")
	}
	return &property, nil
}

// invalidateListings drops cached catalogue pages in the background.
func (d *Deps) invalidateListings() {
	if !d.Cache.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := d.Cache.Invalidate(ctx)
		if err != nil {
			metrics.SideEffectFailed("cache_invalidation")
			d.Log.Warn("property cache invalidation failed", zap.Error(err))
			return
		}
		d.Log.Debug("property cache invalidated", zap.Int("keys", n))
	}()
}
