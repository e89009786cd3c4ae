package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is a marketplace account.
type User struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  *string        `json:"-"`
	Phone         string         `json:"phone"`
	Role          Role           `json:"role"`
	IsActive      bool           `json:"isActive"`
	IsVerified    bool           `json:"isVerified"`
	GoogleID      *string        `json:"-"`
	Avatar        string         `json:"avatar,omitempty"`
	SellerProfile *SellerProfile `json:"sellerProfile,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserSummary is the public subset of a user returned by auth endpoints.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	IsVerified bool      `json:"isVerified"`
}

// Summary returns the public subset of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role   Role
	Active *bool
	Page   PageRequest
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID uuid.UUID) bool {
	return a.UserID == userID
}

// SignupRequest is the payload for POST /auth/signup.
type SignupRequest struct {
	Name             string `json:"name" validate:"required,min=2,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	Phone            string `json:"phone" validate:"omitempty,max=20"`
	Role             Role   `json:"role" validate:"omitempty,oneof=customer seller"`
	StoreName        string `json:"storeName" validate:"omitempty,max=100"`
	StoreDescription string `json:"storeDescription" validate:"omitempty,max=1000"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest is the payload for POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// EmailRequest is the payload for resend-otp and forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the payload for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// LoginChallenge is returned after valid credentials; the OTP completes login.
type LoginChallenge struct {
	NeedsOTP bool   `json:"needsOTP"`
	Email    string `json:"email"`
}

// AuthResult is returned once a user is fully authenticated.
type AuthResult struct {
	User  UserSummary `json:"user"`
	Token string      `json:"token"`
}

// UpdateRoleRequest is the payload for PUT /users/{id}/role.
type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required"`
}

// GoogleProfile is the identity asserted by Google after OAuth.
type GoogleProfile struct {
	ID     string
	Email  string
	Name   string
	Avatar string
}

// GoogleOutcome describes how a Google identity was matched to an account.
type GoogleOutcome int

const (
	// GoogleExistingMatch means an account already carried this Google id.
	GoogleExistingMatch GoogleOutcome = iota
	// GoogleLinkedExisting means a password account with the same email was linked.
	GoogleLinkedExisting
	// GoogleNewAccount means a fresh account was created.
	GoogleNewAccount
)

func (o GoogleOutcome) String() string {
	switch o {
	case GoogleExistingMatch:
		return "existing_match"
	case GoogleLinkedExisting:
		return "linked_existing"
	case GoogleNewAccount:
		return "new_account"
	}
	return "unknown"
}

// GoogleLoginResult pairs the signed-in user with how the account was resolved.
type GoogleLoginResult struct {
	User    *User
	Outcome GoogleOutcome
	Token   string
}
