package controllers_test

import (
	"net/http"
	"testing"

	"github.com/dcode-github/realestate_platform/backend/models"
)

func TestAppointmentCalendar(t *testing.T) {
	h := newHarness(t)
	_, agent := h.login(models.RoleAgent)
	_, other := h.login(models.RoleAgent)

	book := func(title, date string) models.Appointment {
		env := h.expect(h.do(http.MethodPost, "/api/appointments", agent, map[string]interface{}{
			"title":     title,
			"date":      date,
			"startTime": "14:00",
			"client":    map[string]string{"name": "Lee", "email": "lee@example.com"},
		}), http.StatusCreated)
		var a models.Appointment
		decodeData(t, env, &a)
		return a
	}
	today := book("Walkthrough", "2026-03-15T14:00:00Z")
	book("Second viewing", "2026-03-20T09:00:00Z")
	book("Old viewing", "2026-03-01T09:00:00Z")

	if today.Status != models.AppointmentScheduled || today.Duration != 60 || today.Type != "viewing" {
		t.Fatalf("defaults not applied: %+v", today)
	}

	env := h.expect(h.do(http.MethodGet, "/api/appointments/today", agent, nil), http.StatusOK)
	if *env.Count != 1 {
		t.Fatalf("today count = %d", *env.Count)
	}
	env = h.expect(h.do(http.MethodGet, "/api/appointments/upcoming", agent, nil), http.StatusOK)
	if *env.Count != 2 {
		t.Fatalf("upcoming count = %d", *env.Count)
	}
	env = h.expect(h.do(http.MethodGet, "/api/appointments?startDate=2026-03-10", agent, nil), http.StatusOK)
	if *env.Total != 2 {
		t.Fatalf("startDate filter total = %d", *env.Total)
	}
	env = h.expect(h.do(http.MethodGet, "/api/appointments", other, nil), http.StatusOK)
	if *env.Total != 0 {
		t.Fatalf("other agent sees %d appointments", *env.Total)
	}

	path := "/api/appointments/" + today.ID.Hex()
	h.expect(h.do(http.MethodPatch, path+"/status", other, map[string]string{"status": "completed"}), http.StatusForbidden)
	h.expect(h.do(http.MethodPatch, path+"/status", agent, map[string]string{"status": "finished"}), http.StatusBadRequest)
	env = h.expect(h.do(http.MethodPatch, path+"/status", agent, map[string]string{"status": "completed", "outcome": "offer made"}), http.StatusOK)
	var done models.Appointment
	decodeData(t, env, &done)
	if done.Status != models.AppointmentCompleted || done.Outcome != "offer made" {
		t.Fatalf("after status change: %+v", done)
	}

	env = h.expect(h.do(http.MethodGet, "/api/appointments/upcoming", agent, nil), http.StatusOK)
	if *env.Count != 1 {
		t.Fatalf("upcoming after completion = %d", *env.Count)
	}
	h.expect(h.do(http.MethodDelete, path, agent, nil), http.StatusOK)
	h.expect(h.do(http.MethodGet, path, agent, nil), http.StatusNotFound)
}
