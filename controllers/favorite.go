package controllers

import (
	"errors"
	"net/http"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func AddFavorite(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		var req struct {
			PropertyID primitive.ObjectID `json:"propertyId"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		if req.PropertyID.IsZero() {
			d.handleError(w, r, models.ValidationErrors{{Field: "propertyId", Message: "PropertyID is required"}})
			return
		}

		var property models.Property
		if err := findOne(r.Context(), d.coll(store.Properties), store.ByID(req.PropertyID), &property, "Property"); err != nil {
			d.handleError(w, r, err)
			return
		}

		favorites := d.coll(store.Favorites)
		var existing models.Favorite
		err = favorites.FindOne(r.Context(), bson.M{"userId": actor.ID, "propertyId": req.PropertyID}, &existing)
		if err == nil {
			d.handleError(w, r, apperr.Conflict("Property is already in favorites"))
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			d.handleError(w, r, err)
			return
		}

		fav := models.Favorite{
			ID:         primitive.NewObjectID(),
			UserID:     actor.ID,
			PropertyID: req.PropertyID,
			CreatedAt:  d.now(),
		}
		if err := favorites.Insert(r.Context(), &fav); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("favorite")
		d.bumpFavorites(r, req.PropertyID, 1)

		respond(w, http.StatusCreated, models.APIResponse{
			Success: true,
			Message: "Property added to favorites",
			Data:    fav,
		})
	}
}

// GetFavorites lists the caller's saved properties, most recently saved
// first. Favorites whose property has since been removed are skipped.
func GetFavorites(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		favs := []models.Favorite{}
		err = d.coll(store.Favorites).Find(r.Context(), bson.M{"userId": actor.ID},
			store.FindOptions{Sort: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}, &favs)
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		properties := []models.Property{}
		if len(favs) > 0 {
			ids := make(bson.A, 0, len(favs))
			for _, f := range favs {
				ids = append(ids, f.PropertyID)
			}
			found := []models.Property{}
			if err := d.coll(store.Properties).Find(r.Context(), bson.M{"_id": bson.M{"$in": ids}}, store.FindOptions{}, &found); err != nil {
				d.handleError(w, r, err)
				return
			}
			byID := make(map[primitive.ObjectID]models.Property, len(found))
			for _, p := range found {
				byID[p.ID] = p
			}
			for _, f := range favs {
				if p, ok := byID[f.PropertyID]; ok {
					properties = append(properties, p)
				}
			}
		}

		respond(w, http.StatusOK, models.APIResponse{
			Success: true,
			Message: "Fetched favorite properties",
			Count:   intPtr(len(properties)),
			Data:    properties,
		})
	}
}

func DeleteFavorite(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		propertyID, err := pathID(r, "propertyId", "Favorite")
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		n, err := d.coll(store.Favorites).Delete(r.Context(), bson.M{"userId": actor.ID, "propertyId": propertyID})
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if n == 0 {
			d.handleError(w, r, apperr.NotFound("Favorite not found"))
			return
		}
		d.bumpFavorites(r, propertyID, -1)

		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Property removed from favorites"})
	}
}

// bumpFavorites keeps the property's favorite counter in step. The favorite
// itself is already stored, so a failure here is only logged.
func (d *Deps) bumpFavorites(r *http.Request, propertyID primitive.ObjectID, delta int) {
	_, err := d.coll(store.Properties).Update(r.Context(), store.ByID(propertyID), bson.M{"$inc": bson.M{"favorites": delta}})
	if err != nil {
		metrics.SideEffectFailed("property_favorites")
		d.Log.Warn("favorite counter not updated", zap.String("property", propertyID.Hex()), zap.Error(err))
	}
}

func intPtr(n int) *int { return &n }
