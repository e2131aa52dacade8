// Package profile provides candidate and company profile models used for
// viewer personalization and author enrichment in the feed.
package profile

import (
	"errors"
	"time"
)

// Role identifies which side of the marketplace a user is on.
type Role string

// Valid roles.
const (
	RoleSeeker    Role = "seeker"
	RoleRecruiter Role = "recruiter"
)

// ValidRole checks if a role string is valid.
func ValidRole(r Role) bool {
	return r == RoleSeeker || r == RoleRecruiter
}

// ErrInvalidRole is returned for an unknown role.
var ErrInvalidRole = errors.New("invalid role: must be seeker or recruiter")

// ViewerProfile is the structured profile of the current viewer.
// It is a read-only input to feed ranking; all fields are optional and
// absent fields degrade the personalization terms to zero.
type ViewerProfile struct {
	UserID              string   `json:"user_id"`
	Role                Role     `json:"role"`
	Skills              []string `json:"skills,omitempty"`
	Location            string   `json:"location,omitempty"`
	CulturePreferences  []string `json:"culture_preferences,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	ExperienceLevel     string   `json:"experience_level,omitempty"`
}

// Author is the enrichment record for a content author, assembled from the
// candidate or company profile behind the author ID.
type Author struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"display_name"`
	Headline        string   `json:"headline,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	CompanyIndustry string   `json:"company_industry,omitempty"`
	Location        string   `json:"location,omitempty"`
	CultureTraits   []string `json:"culture_traits,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	AvatarURL       string   `json:"avatar_url,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	Role            Role     `json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the author record for a usable role.
func (a *Author) Validate() error {
	if !ValidRole(a.Role) {
		return ErrInvalidRole
	}
	return nil
}
