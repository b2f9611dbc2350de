package models

import "time"

const (
	ProviderGoogle = "google"
	ProviderLine   = "line"
)

// UserFromAuth is the verified session subject, only set by the auth middleware.
type UserFromAuth struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Identity is what an external identity provider vouches for.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

func (i *Identity) UserID() string {
	return i.Provider + ":" + i.Subject
}

type LoginInput struct {
	Provider string `json:"provider"`
	IDToken  string `json:"id_token"`
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserFromAuth `json:"user"`
}

type ClaimResult struct {
	Tasks    int `json:"tasks"`
	Projects int `json:"projects"`
	Expenses int `json:"expenses"`
}
