package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
	RoleUser  = "user"

	PasswordMinLength = 6
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	PasswordMaxBytes = 72
)

var SelfAssignableRoles = []string{RoleAgent, RoleUser}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"password,omitempty"`
	Role      string             `bson:"role" json:"role"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Avatar    string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Public returns a copy safe to send to clients.
func (u User) Public() User {
	u.Password = ""
	return u
}

// ValidateRegistration checks a sign-up payload before the password is hashed.
func (u *User) ValidateRegistration() ValidationErrors {
	var errs ValidationErrors
	if errs.required("name", u.Name, "Please provide a name") {
		errs.maxLength("name", u.Name, NameMaxLength, "Name")
	}
	errs.email("email", u.Email)
	switch {
	case len(u.Password) < PasswordMinLength:
		errs.add("password", "Password must be at least %d characters", PasswordMinLength)
	case len(u.Password) > PasswordMaxBytes:
		errs.add("password", "Password cannot be more than %d bytes", PasswordMaxBytes)
	}
	errs.oneOf("role", u.Role, SelfAssignableRoles)
	return errs
}
