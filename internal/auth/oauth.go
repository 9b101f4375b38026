package auth

import (
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
)

// UseGoogle registers the Google provider with goth. It reports false and
// registers nothing when the client credentials are missing.
func UseGoogle(key, secret, baseURL string) bool {
	if key == "" || secret == "" {
		return false
	}
	goth.UseProviders(google.New(key, secret, baseURL+"/auth/google/callback", "email", "profile"))
	return true
}
