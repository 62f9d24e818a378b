package models

import (
	"fmt"
	"net/url"
)

// DefaultAvatarURL is the avatar assigned when a user doesn't supply one:
// initials rendered by dicebear from the name, or the email when no name
// was given.
func DefaultAvatarURL(name, email string) string {
	seed := name
	if seed == "" {
		seed = email
	}
	return fmt.Sprintf("https://api.dicebear.com/6.x/initials/svg?seed=%s", url.QueryEscape(seed))
}
