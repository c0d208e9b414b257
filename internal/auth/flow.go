// Package auth implements the login, registration, password-reset, and
// logout flows: client-side validation, backend calls, and session updates.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/session"
)

// User-facing messages. Validation failures short-circuit before any
// network call, each with its specific message.
const (
	MsgBlankFields        = "Please fill in the blank fields."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgInvalidPassword    = "Your password must contain 8 to 16 characters, at least 1 uppercase character, and at least 1 special character."
	MsgPasswordMismatch   = "Passwords do not match!"
	MsgDuplicateAccount   = "Registration failed. Username or email already exists."
	MsgGenericFailure     = "An error occurred. Please try again."
	MsgInvalidCredentials = "Invalid username or password."
)

// ValidationError is a client-side rejection; the request never reached
// the backend.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Flow wires the auth operations to the backend and the session store.
type Flow struct {
	client *api.Client
	store  session.Store
	log    *slog.Logger
}

// NewFlow creates an auth flow.
func NewFlow(client *api.Client, store session.Store, log *slog.Logger) *Flow {
	return &Flow{client: client, store: store, log: log}
}

// Login verifies credentials, stores the identity in the session, and
// returns it. A 401 maps to the invalid-credentials message; other backend
// failures surface the server-provided message.
func (f *Flow) Login(ctx context.Context, username, password string) (model.Identity, error) {
	userID, err := f.client.Login(ctx, username, password)
	if err != nil {
		if api.StatusOf(err) == http.StatusUnauthorized {
			return model.Identity{}, fmt.Errorf("%s: %w", MsgInvalidCredentials, err)
		}
		return model.Identity{}, fmt.Errorf("%s: %w", api.MessageOf(err, MsgGenericFailure), err)
	}

	f.store.Set(session.KeyUserID, strconv.Itoa(userID))
	f.log.Info("login successful", "userID", userID)
	return model.Identity{UserID: userID, Username: username}, nil
}

// Register runs the ordered client-side checks, then creates the account.
// The new user is stored in the session, matching the original behavior of
// signing the user in right after registration.
func (f *Flow) Register(ctx context.Context, username, email, password, confirm string) (model.Identity, error) {
	if username == "" || email == "" || password == "" || confirm == "" {
		return model.Identity{}, &ValidationError{Message: MsgBlankFields}
	}
	if !ValidateEmail(email) {
		return model.Identity{}, &ValidationError{Message: MsgInvalidEmail}
	}
	if !ValidatePassword(password) {
		return model.Identity{}, &ValidationError{Message: MsgInvalidPassword}
	}
	if password != confirm {
		return model.Identity{}, &ValidationError{Message: MsgPasswordMismatch}
	}

	userID, err := f.client.Register(ctx, username, email, password)
	if err != nil {
		if api.MessageOf(err, "") == MsgDuplicateAccount || api.StatusOf(err) == http.StatusConflict {
			return model.Identity{}, fmt.Errorf("%s: %w", MsgDuplicateAccount, err)
		}
		return model.Identity{}, fmt.Errorf("%s: %w", MsgGenericFailure, err)
	}

	f.store.Set(session.KeyUserID, strconv.Itoa(userID))
	f.log.Info("registration successful", "userID", userID)
	return model.Identity{UserID: userID, Username: username}, nil
}

// ResetPassword mirrors registration's complexity check, then asks the
// backend to update the password.
func (f *Flow) ResetPassword(ctx context.Context, email, username, password string) error {
	if !ValidatePassword(password) {
		return &ValidationError{Message: MsgInvalidPassword}
	}

	if err := f.client.ResetPassword(ctx, email, username, password); err != nil {
		return fmt.Errorf("%s: %w", api.MessageOf(err, MsgGenericFailure), err)
	}
	f.log.Info("password reset successful", "username", username)
	return nil
}

// Logout drops the session identity before notifying the backend, so the
// local state is clean even if the network call fails.
func (f *Flow) Logout(ctx context.Context) error {
	f.store.Clear(session.KeyUserID)
	if err := f.client.Logout(ctx); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	f.log.Info("logout successful")
	return nil
}

// Identity returns the session identity, resolving the display name from
// the backend. An unset or unparsable slot is the anonymous sentinel.
func (f *Flow) Identity(ctx context.Context) model.Identity {
	raw, ok := f.store.Get(session.KeyUserID)
	if !ok {
		f.store.Set(session.KeyUserID, "0")
		return model.Identity{}
	}
	userID, err := strconv.Atoi(raw)
	if err != nil {
		return model.Identity{}
	}
	ident := model.Identity{UserID: userID}
	if userID == 0 {
		return ident
	}

	username, err := f.client.CurrentUser(ctx, userID)
	if err != nil {
		f.log.Error("failed to resolve current user", "userID", userID, "error", err)
		return ident
	}
	ident.Username = username
	return ident
}
