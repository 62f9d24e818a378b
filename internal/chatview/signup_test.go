package chatview_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	signupErr  error
	profileErr error

	signups  int
	profiles []models.User
}

func (f *fakeAuthenticator) SignUp(ctx context.Context, email, password, name string) (*models.User, error) {
	f.signups++
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &models.User{ID: userA, Email: email}, nil
}

func (f *fakeAuthenticator) UpsertProfile(ctx context.Context, profile models.User) error {
	f.profiles = append(f.profiles, profile)
	return f.profileErr
}

func validForm() chatview.SignupForm {
	return chatview.SignupForm{Name: "Alice", Email: "alice@example.com", Password: "secret"}
}

func TestSignupCreatesAccountAndProfile(t *testing.T) {
	auth := &fakeAuthenticator{}

	fieldErrs, err := chatview.Signup(context.Background(), auth, validForm())
	require.NoError(t, err)
	require.Empty(t, fieldErrs)

	require.Equal(t, 1, auth.signups)
	require.Len(t, auth.profiles, 1)

	profile := auth.profiles[0]
	require.Equal(t, userA, profile.ID)
	require.Equal(t, "Alice", profile.Name)
	require.Equal(t, models.DefaultAvatarURL("Alice", "alice@example.com"), profile.AvatarURL)
	require.True(t, profile.IsOnline)
}

func TestSignupFieldErrorsSuppressRequest(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*chatview.SignupForm)
		field   string
		message string
	}{
		{"missing name", func(f *chatview.SignupForm) { f.Name = "  " }, "name", "Name is required"},
		{"missing email", func(f *chatview.SignupForm) { f.Email = "" }, "email", "Email is required"},
		{"malformed email", func(f *chatview.SignupForm) { f.Email = "not-an-email" }, "email", "Invalid email format"},
		{"email with spaces", func(f *chatview.SignupForm) { f.Email = "a b@example.com" }, "email", "Invalid email format"},
		{"missing password", func(f *chatview.SignupForm) { f.Password = "" }, "password", "Password is required"},
		{"short password", func(f *chatview.SignupForm) { f.Password = "12345" }, "password", "Password must be at least 6 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &fakeAuthenticator{}
			form := validForm()
			tc.mutate(&form)

			fieldErrs, err := chatview.Signup(context.Background(), auth, form)
			require.NoError(t, err)
			require.Equal(t, tc.message, fieldErrs[tc.field])

			// No network traffic on a validation failure.
			require.Zero(t, auth.signups)
			require.Empty(t, auth.profiles)
		})
	}
}

func TestSignupCollectsAllFieldErrors(t *testing.T) {
	fieldErrs := chatview.SignupForm{}.Validate()
	require.Len(t, fieldErrs, 3)
	require.Equal(t, "Name is required", fieldErrs["name"])
	require.Equal(t, "Email is required", fieldErrs["email"])
	require.Equal(t, "Password is required", fieldErrs["password"])
}

func TestSignupRequestFailure(t *testing.T) {
	auth := &fakeAuthenticator{signupErr: fmt.Errorf("email already registered")}

	fieldErrs, err := chatview.Signup(context.Background(), auth, validForm())
	require.Error(t, err)
	require.Empty(t, fieldErrs)
	require.Empty(t, auth.profiles)
}

func TestSignupProfileFailure(t *testing.T) {
	auth := &fakeAuthenticator{profileErr: fmt.Errorf("write rejected")}

	_, err := chatview.Signup(context.Background(), auth, validForm())
	require.Error(t, err)
}
