package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/middleware"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func respond(w http.ResponseWriter, status int, body models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusOK, models.APIResponse{Success: true, Data: data})
}

func created(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusCreated, models.APIResponse{Success: true, Data: data})
}

// listResponse is the envelope shared by every paginated list endpoint.
func listResponse(plan *query.Plan, total int64, count int, data interface{}) models.APIResponse {
	totalPages := plan.TotalPages(total)
	page := plan.Page
	return models.APIResponse{
		Success:     true,
		Count:       &count,
		Total:       &total,
		TotalPages:  &totalPages,
		CurrentPage: &page,
		Pagination:  plan.Paginate(total),
		Data:        data,
	}
}

func countOnly(count int, data interface{}) models.APIResponse {
	return models.APIResponse{Success: true, Count: &count, Data: data}
}

// handleError writes err as an envelope. Anything that is not a domain
// error is a 500 and only shows its detail outside production.
func (d *Deps) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs models.ValidationErrors
	if errors.As(err, &verrs) {
		respond(w, http.StatusBadRequest, models.APIResponse{Success: false, Message: verrs.Error(), Errors: verrs})
		return
	}
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindInternal {
		resp := models.APIResponse{Success: false, Message: appErr.Message}
		if details, ok := appErr.Details.(models.ValidationErrors); ok {
			resp.Errors = details
		}
		respond(w, appErr.HTTPStatus(), resp)
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond(w, http.StatusNotFound, models.APIResponse{Success: false, Message: "Resource not found"})
		return
	case errors.Is(err, store.ErrDuplicate):
		respond(w, http.StatusConflict, models.APIResponse{Success: false, Message: "Duplicate field value entered"})
		return
	}

	d.Log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("correlation_id", middleware.CorrelationID(r.Context())),
		zap.Error(err),
	)
	resp := models.APIResponse{Success: false, Message: "Server Error"}
	if !d.Cfg.IsProduction() {
		resp.Error = err.Error()
	}
	respond(w, http.StatusInternalServerError, resp)
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "Invalid request body", err)
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return unmarshalBody(body, v)
}

func unmarshalBody(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "Invalid request body", err)
	}
	return nil
}

// pathID parses a hex id from the route. A malformed id cannot name an
// existing document, so it is reported as not found.
func pathID(r *http.Request, key, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[key])
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(resource + " not found")
	}
	return id, nil
}

// currentActor returns the caller; routes that need one sit behind Auth.
func currentActor(r *http.Request) (*middleware.Actor, error) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("Not authorized to access this route")
	}
	return actor, nil
}

// scopeFor restricts non-admin callers to documents whose field names them.
func scopeFor(actor *middleware.Actor, field string) bson.M {
	if actor.IsAdmin() {
		return nil
	}
	return query.Owned(field, actor.ID)
}

// findOne maps the store's not-found onto a resource specific message.
func findOne(ctx context.Context, coll store.Collection, filter bson.M, out interface{}, resource string) error {
	err := coll.FindOne(ctx, filter, out)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(resource + " not found")
	}
	return err
}

// findPage runs plan against coll and returns the page, its length and the
// total number of matches. out must point to an empty slice. With a
// projection the raw documents are returned so that only the selected
// fields are written.
func findPage(ctx context.Context, coll store.Collection, plan *query.Plan, out interface{}) (interface{}, int, int64, error) {
	opts := store.FindOptions{Sort: plan.Sort, Skip: plan.Skip(), Limit: int64(plan.Limit), Projection: plan.Projection}

	var data interface{} = out
	if plan.Projection != nil {
		docs := []bson.M{}
		if err := coll.Find(ctx, plan.Filter, opts, &docs); err != nil {
			return nil, 0, 0, err
		}
		data = docs
	} else if err := coll.Find(ctx, plan.Filter, opts, out); err != nil {
		return nil, 0, 0, err
	}

	total, err := coll.Count(ctx, plan.Filter)
	if err != nil {
		return nil, 0, 0, err
	}
	return deref(data), length(data), total, nil
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Elem().Interface()
	}
	return v
}

func length(v interface{}) int {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() == reflect.Slice {
		return rv.Len()
	}
	return 0
}
