package models

import "time"

// Address is the postal address attached to a school.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// ContactInfo holds how a school can be reached. Phone and website are
// optional.
type ContactInfo struct {
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// School is the top-level tenant. Admin and student membership live in the
// school_admins and school_students join tables and are loaded on demand
// rather than embedded here.
type School struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Address     Address     `json:"address"`
	ContactInfo ContactInfo `json:"contactInfo"`
	CreatedAt   time.Time   `json:"-"`
}
