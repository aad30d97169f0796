package users

import "strings"

// Profile is the signed-in member as returned by the current-user endpoint.
type Profile struct {
	ID        string   `json:"userId"`              // Member number
	Username  string   `json:"username,omitempty"`  // Login name
	FirstName string   `json:"firstName,omitempty"` // First name of the member
	LastName  string   `json:"lastName,omitempty"`  // Last name of the member
	Email     string   `json:"email,omitempty"`     // Contact email, only present when shared
	Phone     string   `json:"phone,omitempty"`     // Contact phone, only present when shared
	AvatarURL string   `json:"avatarUrl,omitempty"` // Profile picture
	Settings  Settings `json:"settings"`            // Privacy settings
}

// Settings are the member's privacy choices.
type Settings struct {
	ShowLocation       bool `json:"showLocation"`       // Share live location with other members
	ShowEmail          bool `json:"showEmail"`          // Show email on the profile
	ShowPhone          bool `json:"showPhone"`          // Show phone on the profile
	LocationUpdateSecs int  `json:"locationUpdateSecs"` // How often the device reports its position
}

// DisplayName prefers the full name and falls back to the username.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.ID
}
