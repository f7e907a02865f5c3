package authgoogle

import (
	"context"

	"golang.org/x/oauth2"
)

// GoogleProfile mirrors googleUserInfo for tests in the external package.
type GoogleProfile struct {
	ID, Email, Name, Picture string
	Verified                 bool
}

// StubGoogle replaces the code exchange with a fixed profile.
func StubGoogle(h *Handler, p GoogleProfile) {
	h.fetchUserInfo = func(context.Context, *oauth2.Config, string) (*googleUserInfo, error) {
		return &googleUserInfo{ID: p.ID, Email: p.Email, EmailVerified: p.Verified, Name: p.Name, Picture: p.Picture}, nil
	}
}
