package routes

import (
	"net/http"

	"github.com/dcode-github/realestate_platform/backend/config"
	"github.com/dcode-github/realestate_platform/backend/controllers"
	"github.com/dcode-github/realestate_platform/backend/middleware"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// chain wraps h so that the first middleware runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func Routes(router *mux.Router, d *controllers.Deps) {
	router.Use(middleware.Logging(d.Log))
	router.Use(middleware.Recover(d.Log, !d.Cfg.IsProduction()))
	router.NotFoundHandler = middleware.Logging(d.Log)(http.HandlerFunc(notFound))
	router.MethodNotAllowedHandler = middleware.Logging(d.Log)(http.HandlerFunc(methodNotAllowed))

	auth := middleware.Auth(d.Tokens, d.Log)
	optional := middleware.OptionalAuth(d.Tokens)
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAgent, models.RoleAdmin)
	forms := middleware.RateLimit(d.Cfg.RateLimitRequests, d.Cfg.RateLimitWindow)
	logins := middleware.RateLimit(d.Cfg.RateLimitRequests, d.Cfg.RateLimitWindow)

	protected := func(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		return chain(h, append([]func(http.Handler) http.Handler{auth}, mws...)...)
	}

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if d.Cfg.UploadBackend == config.UploadDisk {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.Cfg.UploadDir))))
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/health", controllers.Health(d)).Methods(http.MethodGet)

	// Auth routes
	api.Handle("/auth/register", chain(controllers.RegisterUser(d), logins)).Methods(http.MethodPost)
	api.Handle("/auth/login", chain(controllers.LoginUser(d), logins)).Methods(http.MethodPost)
	api.Handle("/auth/me", protected(controllers.GetMe(d))).Methods(http.MethodGet)

	// Property routes; fixed segments are registered before {id}
	api.Handle("/properties", chain(controllers.GetProperties(d), optional)).Methods(http.MethodGet)
	api.Handle("/properties", protected(controllers.CreateProperty(d), staff)).Methods(http.MethodPost)
	api.Handle("/properties/featured", controllers.GetFeaturedProperties(d)).Methods(http.MethodGet)
	api.Handle("/properties/slug/{slug}", chain(controllers.GetPropertyBySlug(d), optional)).Methods(http.MethodGet)
	api.Handle("/properties/agent/{agentId}", controllers.GetAgentProperties(d)).Methods(http.MethodGet)
	api.Handle("/properties/{id}", chain(controllers.GetProperty(d), optional)).Methods(http.MethodGet)
	api.Handle("/properties/{id}", protected(controllers.UpdateProperty(d))).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/properties/{id}", protected(controllers.DeleteProperty(d))).Methods(http.MethodDelete)
	api.Handle("/properties/{id}/images", protected(controllers.AddPropertyImages(d))).Methods(http.MethodPost)

	// Lead routes
	api.Handle("/leads/public", chain(controllers.CreatePublicLead(d), forms)).Methods(http.MethodPost)
	api.Handle("/leads/listing", chain(controllers.SubmitListing(d), forms)).Methods(http.MethodPost)
	api.Handle("/leads", protected(controllers.GetLeads(d))).Methods(http.MethodGet)
	api.Handle("/leads", protected(controllers.CreateLead(d))).Methods(http.MethodPost)
	api.Handle("/leads/stats", protected(controllers.GetLeadStats(d))).Methods(http.MethodGet)
	api.Handle("/leads/{id}", protected(controllers.GetLead(d))).Methods(http.MethodGet)
	api.Handle("/leads/{id}", protected(controllers.UpdateLead(d))).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/leads/{id}", protected(controllers.DeleteLead(d), admin)).Methods(http.MethodDelete)
	api.Handle("/leads/{id}/status", protected(controllers.UpdateLeadStatus(d))).Methods(http.MethodPatch, http.MethodPut)
	api.Handle("/leads/{id}/activity", protected(controllers.AddLeadActivity(d))).Methods(http.MethodPost)

	// Appointment routes
	api.Handle("/appointments", protected(controllers.GetAppointments(d))).Methods(http.MethodGet)
	api.Handle("/appointments", protected(controllers.CreateAppointment(d))).Methods(http.MethodPost)
	api.Handle("/appointments/upcoming", protected(controllers.GetUpcomingAppointments(d))).Methods(http.MethodGet)
	api.Handle("/appointments/today", protected(controllers.GetTodayAppointments(d))).Methods(http.MethodGet)
	api.Handle("/appointments/{id}", protected(controllers.GetAppointment(d))).Methods(http.MethodGet)
	api.Handle("/appointments/{id}", protected(controllers.UpdateAppointment(d))).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/appointments/{id}", protected(controllers.DeleteAppointment(d))).Methods(http.MethodDelete)
	api.Handle("/appointments/{id}/status", protected(controllers.UpdateAppointmentStatus(d))).Methods(http.MethodPatch, http.MethodPut)

	// Conversation routes
	api.Handle("/messages/conversations", protected(controllers.GetConversations(d))).Methods(http.MethodGet)
	api.Handle("/messages/conversations", protected(controllers.CreateConversation(d))).Methods(http.MethodPost)
	api.Handle("/messages/unread-count", protected(controllers.GetUnreadCount(d))).Methods(http.MethodGet)
	api.Handle("/messages/conversations/{id}", protected(controllers.GetConversation(d))).Methods(http.MethodGet)
	api.Handle("/messages/conversations/{id}", protected(controllers.DeleteConversation(d))).Methods(http.MethodDelete)
	api.Handle("/messages/conversations/{id}/messages", protected(controllers.SendMessage(d))).Methods(http.MethodPost)

	// Contact routes
	api.Handle("/contact", chain(controllers.SubmitContact(d), forms)).Methods(http.MethodPost)
	api.Handle("/contact", protected(controllers.GetContacts(d), admin)).Methods(http.MethodGet)
	api.Handle("/contact/{id}", protected(controllers.GetContact(d), admin)).Methods(http.MethodGet)
	api.Handle("/contact/{id}", protected(controllers.UpdateContact(d), admin)).Methods(http.MethodPut, http.MethodPatch)
	api.Handle("/contact/{id}", protected(controllers.DeleteContact(d), admin)).Methods(http.MethodDelete)

	// Favorites routes
	api.Handle("/favorites", protected(controllers.AddFavorite(d))).Methods(http.MethodPost)
	api.Handle("/favorites", protected(controllers.GetFavorites(d))).Methods(http.MethodGet)
	api.Handle("/favorites/{propertyId}", protected(controllers.DeleteFavorite(d))).Methods(http.MethodDelete)

	// Upload routes
	api.Handle("/upload/avatar", protected(controllers.UploadAvatar(d))).Methods(http.MethodPost)
	api.Handle("/upload/property-images", protected(controllers.UploadPropertyImages(d))).Methods(http.MethodPost)
	api.Handle("/upload/property-files", protected(controllers.UploadPropertyFiles(d))).Methods(http.MethodPost)
	api.Handle("/upload/document", protected(controllers.UploadDocument(d))).Methods(http.MethodPost)
	api.Handle("/upload/{folder}/{filename}", protected(controllers.DeleteUpload(d))).Methods(http.MethodDelete)

	// Analytics routes
	api.Handle("/analytics/dashboard", protected(controllers.GetDashboard(d))).Methods(http.MethodGet)
	api.Handle("/analytics/properties", protected(controllers.GetPropertyAnalytics(d))).Methods(http.MethodGet)
	api.Handle("/analytics/leads", protected(controllers.GetLeadAnalytics(d))).Methods(http.MethodGet)
	api.Handle("/analytics/revenue", protected(controllers.GetRevenueAnalytics(d), admin)).Methods(http.MethodGet)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusNotFound, models.APIResponse{Success: false, Message: "Route not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusMethodNotAllowed, models.APIResponse{Success: false, Message: "Method not allowed"})
}
