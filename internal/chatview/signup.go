package chatview

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chatzone/chatzone/internal/models"
)

// Authenticator is the signup side of the session provider: create the
// account, then write the public profile row other users see.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, name string) (*models.User, error)
	UpsertProfile(ctx context.Context, profile models.User) error
}

// SignupForm is the local state of the signup view.
type SignupForm struct {
	Name     string
	Email    string
	Password string
}

// FieldErrors maps a form field to its inline error message.
type FieldErrors map[string]string

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate applies the form rules and returns the per-field messages.
// An empty result means the form may be submitted.
func (f SignupForm) Validate() FieldErrors {
	errs := make(FieldErrors)

	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	if strings.TrimSpace(f.Email) == "" {
		errs["email"] = "Email is required"
	} else if !emailPattern.MatchString(f.Email) {
		errs["email"] = "Invalid email format"
	}
	if f.Password == "" {
		errs["password"] = "Password is required"
	} else if len(f.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}

	return errs
}

// Signup validates the form and, only if every rule passes, creates the
// account and upserts the public profile (name, generated avatar, online
// flag). Field errors suppress the network call entirely; they are
// returned for inline rendering, not as an error. A non-nil error is a
// failed request; the form keeps its contents for a retry.
func Signup(ctx context.Context, auth Authenticator, form SignupForm) (FieldErrors, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return errs, nil
	}

	user, err := auth.SignUp(ctx, form.Email, form.Password, form.Name)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("sign up succeeded but no user returned")
	}

	profile := models.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      form.Name,
		AvatarURL: models.DefaultAvatarURL(form.Name, user.Email),
		IsOnline:  true,
	}
	if err := auth.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return nil, nil
}
