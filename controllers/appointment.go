package controllers

import (
	"net/http"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/middleware"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/query"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const upcomingLimit = 10

var calendarSort = bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}, {Key: "_id", Value: 1}}

// appointmentScope lets a non-admin see appointments they own or attend.
func appointmentScope(actor *middleware.Actor) bson.M {
	if actor.IsAdmin() {
		return nil
	}
	return bson.M{"$or": bson.A{bson.M{"agent": actor.ID}, bson.M{"attendees": actor.ID}}}
}

func GetAppointments(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		params := r.URL.Query()
		plan := query.Translate(params, query.Appointments, appointmentScope(actor))
		if params.Get("sort") == "" {
			plan.Sort = calendarSort
		}
		appointments := []models.Appointment{}
		data, count, total, err := findPage(r.Context(), d.coll(store.Appointments), plan, &appointments)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, listResponse(plan, total, count, data))
	}
}

func GetUpcomingAppointments(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		filter := and(appointmentScope(actor), bson.M{
			"date":   bson.M{"$gte": dayStart(d.now())},
			"status": models.AppointmentScheduled,
		})
		appointments := []models.Appointment{}
		err = d.coll(store.Appointments).Find(r.Context(), filter, store.FindOptions{Sort: calendarSort, Limit: upcomingLimit}, &appointments)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, countOnly(len(appointments), appointments))
	}
}

func GetTodayAppointments(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		start := dayStart(d.now())
		filter := and(appointmentScope(actor), bson.M{
			"date": bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)},
		})
		appointments := []models.Appointment{}
		err = d.coll(store.Appointments).Find(r.Context(), filter, store.FindOptions{Sort: calendarSort}, &appointments)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, countOnly(len(appointments), appointments))
	}
}

func GetAppointment(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		id, err := pathID(r, "id", "Appointment")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var appointment models.Appointment
		if err := findOne(r.Context(), d.coll(store.Appointments), and(store.ByID(id), appointmentScope(actor)), &appointment, "Appointment"); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, appointment)
	}
}

func CreateAppointment(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var appointment models.Appointment
		if err := decodeJSON(w, r, &appointment); err != nil {
			d.handleError(w, r, err)
			return
		}
		if appointment.Agent == nil || !actor.IsAdmin() {
			appointment.Agent = &actor.ID
		}
		appointment.Normalize()
		appointment.Client.Phone = utils.NormalizePhone(appointment.Client.Phone, d.Cfg.PhoneRegion)
		if errs := appointment.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		now := d.now()
		appointment.ID = primitive.NewObjectID()
		appointment.ReminderSent = false
		appointment.CreatedAt, appointment.UpdatedAt = now, now
		if err := d.coll(store.Appointments).Insert(r.Context(), &appointment); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("appointment")
		created(w, appointment)
	}
}

func UpdateAppointment(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointment, actor, err := d.ownedAppointment(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		body, err := readBody(w, r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		updated := *appointment
		if err := unmarshalBody(body, &updated); err != nil {
			d.handleError(w, r, err)
			return
		}
		updated.ID = appointment.ID
		updated.CreatedAt = appointment.CreatedAt
		if !actor.IsAdmin() {
			updated.Agent = appointment.Agent
		}

		updated.Normalize()
		updated.Client.Phone = utils.NormalizePhone(updated.Client.Phone, d.Cfg.PhoneRegion)
		if errs := updated.Validate(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}
		updated.UpdatedAt = d.now()
		if err := d.coll(store.Appointments).Replace(r.Context(), store.ByID(updated.ID), &updated); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, updated)
	}
}

func UpdateAppointmentStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointment, _, err := d.ownedAppointment(r, "update")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var req struct {
			Status  string `json:"status"`
			Outcome string `json:"outcome"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			d.handleError(w, r, err)
			return
		}
		status := req.Status
		valid := false
		for _, s := range models.AppointmentStatuses {
			if s == status {
				valid = true
				break
			}
		}
		if !valid {
			d.handleError(w, r, apperr.BadRequest("Invalid status"))
			return
		}

		appointment.Status = status
		if req.Outcome != "" {
			appointment.Outcome = req.Outcome
		}
		appointment.UpdatedAt = d.now()
		if err := d.coll(store.Appointments).Replace(r.Context(), store.ByID(appointment.ID), appointment); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, appointment)
	}
}

func DeleteAppointment(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointment, _, err := d.ownedAppointment(r, "delete")
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		if _, err := d.coll(store.Appointments).Delete(r.Context(), store.ByID(appointment.ID)); err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "Appointment deleted successfully"})
	}
}

func (d *Deps) ownedAppointment(r *http.Request, action string) (*models.Appointment, *middleware.Actor, error) {
	actor, err := currentActor(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := pathID(r, "id", "Appointment")
	if err != nil {
		return nil, nil, err
	}
	var appointment models.Appointment
	if err := findOne(r.Context(), d.coll(store.Appointments), store.ByID(id), &appointment, "Appointment"); err != nil {
		return nil, nil, err
	}
	if !actor.Owns(appointment.Agent) {
		return nil, nil, apperr.Forbidden("Not authorized to " + action + " this appointment")
	}
	return &appointment, actor, nil
}
