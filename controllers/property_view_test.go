package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/store"
	"go.mongodb.org/mongo-driver/bson"
)

// readOnlyProperties refuses updates on the properties collection.
type readOnlyProperties struct {
	store.Store
}

func (s readOnlyProperties) Collection(name string) store.Collection {
	c := s.Store.Collection(name)
	if name == store.Properties {
		return refusingUpdates{c}
	}
	return c
}

type refusingUpdates struct {
	store.Collection
}

func (refusingUpdates) Update(context.Context, bson.M, bson.M) (int64, error) {
	return 0, errors.New("write refused")
}

func TestPropertyFetchSurvivesViewCounterFailure(t *testing.T) {
	h := newHarness(t)
	_, token := h.login(models.RoleAgent)
	p := h.createProperty(token, "Quiet Street Bungalow")

	h.deps.Store = readOnlyProperties{h.deps.Store}

	env := h.expect(h.do(http.MethodGet, "/api/properties/"+p.ID.Hex(), "", nil), http.StatusOK)
	var fetched models.Property
	decodeData(t, env, &fetched)
	if fetched.ID != p.ID || fetched.Title != "Quiet Street Bungalow" {
		t.Fatalf("fetched = %+v", fetched)
	}
	if fetched.Views != 0 {
		t.Fatalf("views = %d, want the unchanged stored count", fetched.Views)
	}

	h.expect(h.do(http.MethodGet, "/api/properties/slug/"+p.Slug, "", nil), http.StatusOK)
}
