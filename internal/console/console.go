// Package console implements the administrative operations on users,
// AppViews and identities.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mytwin/twin-admin/internal/graphql"
)

var (
	// ErrInvalidInput is returned before any call when an input fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when the backend has no such entity.
	ErrNotFound = errors.New("not found")
)

const (
	minUsernameLength = 3
	minPasswordLength = 6

	DefaultRole = "user"
	DefaultLang = "fr"
)

// Service runs console operations. The client is expected to attach
// credentials and recover from expired tokens.
type Service struct {
	gql *graphql.Client
}

// NewService creates a console service on top of gql.
func NewService(gql *graphql.Client) *Service {
	return &Service{gql: gql}
}

// Users lists every user with its preferences.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := s.gql.Do(ctx, graphql.NewOperation(OpGetUsers, usersQuery, nil), &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// User returns a single user.
func (s *Service) User(ctx context.Context, id string) (*User, error) {
	if err := validateUUID("user", id); err != nil {
		return nil, err
	}

	var out struct {
		User *User `json:"user"`
	}
	op := graphql.NewOperation(OpGetUser, userQuery, map[string]any{"uuid": id})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return out.User, nil
}

// CreateUser creates an account, applying the default role and language.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var out struct {
		CreateUser *User `json:"createUser"`
	}
	op := graphql.NewOperation(OpCreateUser, createUserMutation, map[string]any{"input": in})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.CreateUser == nil || out.CreateUser.UUID == "" {
		return nil, errors.New("createUser returned no user id")
	}

	log.Info().Str("userId", out.CreateUser.UUID).Str("username", out.CreateUser.Username).Msg("user created")

	return out.CreateUser, nil
}

// CreateUserWithIdentity creates an account and then its identity. Both
// inputs are validated before the first call. If the identity cannot be
// created the user is kept and returned along with the error.
func (s *Service) CreateUserWithIdentity(ctx context.Context, in CreateUserInput, identity CreateIdentityInput) (*User, *Identity, error) {
	if err := in.normalize(); err != nil {
		return nil, nil, err
	}
	if err := identity.Validate(); err != nil {
		return nil, nil, err
	}

	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	created, err := s.CreateIdentity(ctx, user.UUID, identity)
	if err != nil {
		return user, nil, fmt.Errorf("user %s created but identity failed: %w", user.UUID, err)
	}
	return user, created, nil
}

// UpdateUser renames the account the backend associates with the request.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error) {
	if len(strings.TrimSpace(in.Username)) < minUsernameLength {
		return nil, fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, minUsernameLength)
	}

	var out struct {
		UpdateUser *User `json:"updateUser"`
	}
	op := graphql.NewOperation(OpUpdateUser, updateUserMutation, map[string]any{"input": in})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.UpdateUser == nil {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	return out.UpdateUser, nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.delete(ctx, "user", OpDeleteUser, deleteUserMutation, "deleteUser", id)
}

// AppViews lists every AppView.
func (s *Service) AppViews(ctx context.Context) ([]AppView, error) {
	var out struct {
		AppViews []AppView `json:"appViews"`
	}
	if err := s.gql.Do(ctx, graphql.NewOperation(OpGetAppViews, appViewsQuery, nil), &out); err != nil {
		return nil, err
	}
	for i := range out.AppViews {
		out.AppViews[i].sort()
	}
	return out.AppViews, nil
}

// AppView returns a single AppView with its items in display order.
func (s *Service) AppView(ctx context.Context, id string) (*AppView, error) {
	if err := validateUUID("app view", id); err != nil {
		return nil, err
	}

	var out struct {
		AppView *AppView `json:"appView"`
	}
	op := graphql.NewOperation(OpGetAppView, appViewQuery, map[string]any{"uuid": id})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.AppView == nil {
		return nil, fmt.Errorf("app view %s: %w", id, ErrNotFound)
	}
	out.AppView.sort()
	return out.AppView, nil
}

// CreateAppView validates, normalizes and creates an AppView.
func (s *Service) CreateAppView(ctx context.Context, in CreateAppViewInput) (*AppView, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		CreateAppView *AppView `json:"createAppView"`
	}
	op := graphql.NewOperation(OpCreateAppView, createAppViewMutation, map[string]any{"input": in})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.CreateAppView == nil {
		return nil, errors.New("createAppView returned no app view")
	}

	log.Info().Str("appViewId", out.CreateAppView.UUID).Str("name", out.CreateAppView.Name).Msg("app view created")

	out.CreateAppView.sort()
	return out.CreateAppView, nil
}

// UpdateAppView changes the non-empty fields of in.
func (s *Service) UpdateAppView(ctx context.Context, id string, in UpdateAppViewInput) (*AppView, error) {
	if err := validateUUID("app view", id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		UpdateAppView *AppView `json:"updateAppView"`
	}
	op := graphql.NewOperation(OpUpdateAppView, updateAppViewMutation, map[string]any{"uuid": id, "input": in})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.UpdateAppView == nil {
		return nil, fmt.Errorf("app view %s: %w", id, ErrNotFound)
	}
	out.UpdateAppView.sort()
	return out.UpdateAppView, nil
}

// DeleteAppView removes an AppView.
func (s *Service) DeleteAppView(ctx context.Context, id string) error {
	return s.delete(ctx, "app view", OpDeleteAppView, deleteAppViewMutation, "deleteAppView", id)
}

// AssignAppViewToUsers sets the AppView of each listed user.
func (s *Service) AssignAppViewToUsers(ctx context.Context, appViewID string, userIDs []string) error {
	if err := validateUUID("app view", appViewID); err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return fmt.Errorf("%w: at least one user is required", ErrInvalidInput)
	}
	for _, id := range userIDs {
		if err := validateUUID("user", id); err != nil {
			return err
		}
	}

	var out struct {
		Assigned bool `json:"assignAppViewToUsers"`
	}
	op := graphql.NewOperation(OpAssignAppViewToUsers, assignAppViewMutation, map[string]any{
		"appViewId": appViewID,
		"users":     userIDs,
	})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return err
	}
	if !out.Assigned {
		return fmt.Errorf("app view %s was not assigned", appViewID)
	}

	log.Info().Str("appViewId", appViewID).Int("users", len(userIDs)).Msg("app view assigned")

	return nil
}

// CreateIdentity attaches a new identity to a user.
func (s *Service) CreateIdentity(ctx context.Context, userID string, in CreateIdentityInput) (*Identity, error) {
	if err := validateUUID("user", userID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		CreateIdentity *Identity `json:"createIdentity"`
	}
	op := graphql.NewOperation(OpCreateIdentity, createIdentityMutation, map[string]any{"input": in, "userId": userID})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.CreateIdentity == nil {
		return nil, errors.New("createIdentity returned no identity")
	}
	return out.CreateIdentity, nil
}

// UpdateIdentity changes the non-empty fields of in.
func (s *Service) UpdateIdentity(ctx context.Context, id string, in UpdateIdentityInput) (*Identity, error) {
	if err := validateUUID("identity", id); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var out struct {
		UpdateIdentity *Identity `json:"updateIdentity"`
	}
	op := graphql.NewOperation(OpUpdateIdentity, updateIdentityMutation, map[string]any{"uuid": id, "input": in})
	if err := s.gql.Do(ctx, op, &out); err != nil {
		return nil, err
	}
	if out.UpdateIdentity == nil {
		return nil, fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	return out.UpdateIdentity, nil
}

// DeleteIdentity removes an identity.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	return s.delete(ctx, "identity", OpDeleteIdentity, deleteIdentityMutation, "deleteIdentity", id)
}

// delete runs a mutation answering with a boolean.
func (s *Service) delete(ctx context.Context, kind, name, query, field, id string) error {
	if err := validateUUID(kind, id); err != nil {
		return err
	}

	var out map[string]bool
	if err := s.gql.Do(ctx, graphql.NewOperation(name, query, map[string]any{"uuid": id}), &out); err != nil {
		return err
	}
	if !out[field] {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}

	log.Info().Str("kind", kind).Str("id", id).Msg("deleted")

	return nil
}

func validateUUID(kind, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: %s id %q is not a uuid", ErrInvalidInput, kind, id)
	}
	return nil
}

func (in *CreateUserInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	if len(in.Username) < minUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, minUsernameLength)
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if in.Role == "" {
		in.Role = DefaultRole
	}
	if in.DefaultLang == "" {
		in.DefaultLang = DefaultLang
	}
	if in.AppViewID != "" {
		return validateUUID("app view", in.AppViewID)
	}
	return nil
}

// Validate checks the required names and the optional date and sex.
func (in *CreateIdentityInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	return validateIdentityFields(in.BirthDate, in.BiologicalSex)
}

// Validate checks that something changes and the optional date and sex.
func (in *UpdateIdentityInput) Validate() error {
	if *in == (UpdateIdentityInput{}) {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return validateIdentityFields(in.BirthDate, in.BiologicalSex)
}

func validateIdentityFields(birthDate, sex string) error {
	if birthDate != "" {
		if _, err := time.Parse(time.DateOnly, birthDate); err != nil {
			return fmt.Errorf("%w: birth date %q must be YYYY-MM-DD", ErrInvalidInput, birthDate)
		}
	}
	switch sex {
	case "", SexMale, SexFemale:
		return nil
	default:
		return fmt.Errorf("%w: biological sex must be %q or %q", ErrInvalidInput, SexMale, SexFemale)
	}
}

func (v *AppView) sort() {
	v.Applications = NormalizeItems(v.Applications)
	v.Profile = NormalizeItems(v.Profile)
}
