package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/store"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func RegisterUser(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var user models.User
		if err := decodeJSON(w, r, &user); err != nil {
			d.handleError(w, r, err)
			return
		}
		user.Name = strings.TrimSpace(user.Name)
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		user.Role = strings.ToLower(strings.TrimSpace(user.Role))
		if user.Role == "" {
			user.Role = models.RoleUser
		}
		if errs := user.ValidateRegistration(); len(errs) > 0 {
			d.handleError(w, r, errs)
			return
		}

		users := d.coll(store.Users)
		var existing models.User
		err := users.FindOne(r.Context(), bson.M{"email": user.Email}, &existing)
		if err == nil {
			d.handleError(w, r, apperr.Conflict("Email already exists"))
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			d.handleError(w, r, err)
			return
		}

		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			d.handleError(w, r, apperr.Internal("Failed to hash password", err))
			return
		}
		now := d.now()
		user.ID = primitive.NewObjectID()
		user.Password = hashed
		user.Phone = utils.NormalizePhone(user.Phone, d.Cfg.PhoneRegion)
		user.CreatedAt, user.UpdatedAt = now, now
		if err := users.Insert(r.Context(), &user); err != nil {
			d.handleError(w, r, err)
			return
		}
		metrics.EntityCreated("user")

		d.issueToken(w, r, http.StatusCreated, "User registered successfully", user)
	}
}

func LoginUser(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &credentials); err != nil {
			d.handleError(w, r, err)
			return
		}
		if credentials.Email == "" || credentials.Password == "" {
			d.handleError(w, r, apperr.BadRequest("Please provide an email and password"))
			return
		}

		var user models.User
		err := d.coll(store.Users).FindOne(r.Context(), bson.M{"email": strings.ToLower(strings.TrimSpace(credentials.Email))}, &user)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !utils.CheckPasswordHash(credentials.Password, user.Password)) {
			d.handleError(w, r, apperr.Unauthorized("Invalid credentials"))
			return
		}
		if err != nil {
			d.handleError(w, r, err)
			return
		}

		d.issueToken(w, r, http.StatusOK, "Login successful", user)
	}
}

// GetMe returns the authenticated user.
func GetMe(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		var user models.User
		if err := findOne(r.Context(), d.coll(store.Users), store.ByID(actor.ID), &user, "User"); err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, user.Public())
	}
}

func (d *Deps) issueToken(w http.ResponseWriter, r *http.Request, status int, message string, user models.User) {
	token, err := d.Tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		d.handleError(w, r, apperr.Internal("Failed to generate token", err))
		return
	}
	respond(w, status, models.APIResponse{
		Success: true,
		Message: message,
		Data:    authResponse{Token: token, User: user.Public()},
	})
}
