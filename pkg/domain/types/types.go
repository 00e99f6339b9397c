package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// FacilityID represents a UPA (emergency-care unit) identifier
type FacilityID string

// String returns the string representation
func (id FacilityID) String() string {
	return string(id)
}

// Validate checks if the facility ID is valid (non-empty)
func (id FacilityID) Validate() error {
	if id == "" {
		return goerr.New("facility ID cannot be empty")
	}
	return nil
}

// UserID represents a dashboard user identifier as issued by the backend
type UserID string

// String returns the string representation
func (id UserID) String() string {
	return string(id)
}

// UserRole represents the role claim of a dashboard user
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleViewer UserRole = "viewer"
)

// String returns the string representation
func (r UserRole) String() string {
	return string(r)
}

// SessionID represents a session identifier
type SessionID string

// String returns the string representation
func (id SessionID) String() string {
	return string(id)
}

// NewSessionID creates a new SessionID using UUID v7
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return SessionID(id.String()), nil
}

// SubscriptionID identifies one hold on a facility subscription taken over HTTP
type SubscriptionID string

// String returns the string representation
func (id SubscriptionID) String() string {
	return string(id)
}

// NewSubscriptionID creates a random SubscriptionID
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(uuid.NewString())
}

// SessionSecret represents a session secret token
type SessionSecret string

// String returns the string representation
func (s SessionSecret) String() string {
	return string(s)
}
