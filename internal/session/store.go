package session

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var (
	// ErrNoToken is returned by Token when neither scheme holds a credential.
	ErrNoToken = errors.New("no session token")

	// ErrSessionChanged is returned when a write was meant for a session that
	// has since been cleared or replaced.
	ErrSessionChanged = errors.New("session changed")
)

const sessionFile = "session.json"

// Scheme identifies which token scheme populated the session.
type Scheme string

const (
	SchemeNone          Scheme = ""
	SchemeLegacy        Scheme = "legacy"
	SchemeAccessRefresh Scheme = "access-refresh"
)

// state is the on-disk layout. Field names match the keys the web console
// kept in local storage so a session file is easy to inspect by hand.
type state struct {
	Version      int       `json:"version"`
	LegacyToken  string    `json:"auth_token,omitempty"`
	LegacyUserID string    `json:"user_id,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"prod_user_id,omitempty"`
	Role         string    `json:"user_role,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Store owns the persisted session. It performs no network calls.
//
// Every mutation rewrites the whole file atomically, so a single
// SaveAccessRefresh never leaves a half-written token pair behind.
type Store struct {
	baseDir string

	mu         sync.Mutex
	generation uint64
}

// NewStore creates a session store rooted at baseDir.
// If baseDir is empty, uses ~/.twin-admin/
func NewStore(baseDir string) (*Store, error) {
	baseDir, err := resolveDir(baseDir)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// resolveDir returns the state directory, creating it with 0700 permissions.
func resolveDir(baseDir string) (string, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".twin-admin")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}

	return baseDir, nil
}

// Dir returns the directory holding the session file.
func (s *Store) Dir() string {
	return s.baseDir
}

// SaveLegacy stores a single-token session, discarding any access/refresh pair.
func (s *Store) SaveLegacy(token, userID string) error {
	return s.update(func(st *state) {
		*st = state{LegacyToken: token, LegacyUserID: userID}
	}, true)
}

// SaveAccessRefresh starts an access/refresh session, discarding any legacy
// token. role may be empty when it is only known after a separate call; see
// SaveRole.
func (s *Store) SaveAccessRefresh(accessToken, refreshToken, userID, role string) error {
	return s.update(func(st *state) {
		*st = state{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			UserID:       userID,
			Role:         role,
		}
	}, true)
}

// RotateTokens replaces the access/refresh pair of the session identified by
// generation, keeping the cached role. It returns ErrSessionChanged without
// writing anything if that session no longer exists.
func (s *Store) RotateTokens(generation uint64, accessToken, refreshToken, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		return ErrSessionChanged
	}

	st := s.load()
	if st.RefreshToken == "" {
		return ErrSessionChanged
	}

	st.AccessToken = accessToken
	st.RefreshToken = refreshToken
	if userID != "" {
		st.UserID = userID
	}
	st.UpdatedAt = time.Now().UTC()

	return s.save(&st)
}

// SaveRole caches the role of the access-refresh principal. It is a no-op
// once the session has been cleared.
func (s *Store) SaveRole(role string) error {
	return s.update(func(st *state) {
		if st.AccessToken == "" {
			return
		}
		st.Role = role
	}, false)
}

// ClearGeneration clears the session only if it is still the one identified
// by generation. It reports whether anything was cleared.
func (s *Store) ClearGeneration(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		return false
	}
	s.clearLocked()
	return true
}

// LegacyToken returns the single-scheme JWT, or "" when absent.
func (s *Store) LegacyToken() string {
	return s.read().LegacyToken
}

// LegacyUserID returns the principal id stored with the legacy token.
func (s *Store) LegacyUserID() string {
	return s.read().LegacyUserID
}

func (s *Store) AccessToken() string {
	return s.read().AccessToken
}

func (s *Store) RefreshToken() string {
	return s.read().RefreshToken
}

// Role returns the explicitly cached role only.
func (s *Store) Role() string {
	return s.read().Role
}

// UserID returns the principal of whichever scheme is active.
func (s *Store) UserID() string {
	st := s.read()
	if st.AccessToken != "" {
		return st.UserID
	}
	return st.LegacyUserID
}

// Scheme reports which scheme currently holds the session.
func (s *Store) Scheme() Scheme {
	st := s.read()
	switch {
	case st.AccessToken != "":
		return SchemeAccessRefresh
	case st.LegacyToken != "":
		return SchemeLegacy
	default:
		return SchemeNone
	}
}

// CurrentToken returns the access token if present, else the legacy token.
func (s *Store) CurrentToken() string {
	st := s.read()
	if st.AccessToken != "" {
		return st.AccessToken
	}
	return st.LegacyToken
}

// Token implements oauth2.TokenSource over CurrentToken.
func (s *Store) Token() (*oauth2.Token, error) {
	tok := s.CurrentToken()
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

var _ oauth2.TokenSource = (*Store)(nil)

// ResolveRole returns the cached role, falling back to the role claim of the
// legacy token. A token that cannot be decoded yields "".
func (s *Store) ResolveRole() string {
	st := s.read()
	if st.Role != "" {
		return st.Role
	}
	if st.LegacyToken == "" {
		return ""
	}

	role, err := RoleClaim(st.LegacyToken)
	if err != nil {
		log.Debug().Err(err).Msg("failed to decode legacy token")
		return ""
	}
	return role
}

// RoleClaim extracts the role claim without verifying the signature; the
// server remains the authority and validates the token on every call.
func RoleClaim(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	role, _ := claims["role"].(string)
	return role, nil
}

// Clear removes every key of both schemes. It is idempotent.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	s.generation++

	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		// fall back to truncating so a stale token can never be read back
		log.Warn().Err(err).Msg("failed to remove session file")
		if err := s.save(&state{}); err != nil {
			log.Error().Err(err).Msg("failed to clear session")
		}
		return
	}

	log.Debug().Msg("session cleared")
}

// IsAuthenticated is true iff CurrentToken is non-empty.
func (s *Store) IsAuthenticated() bool {
	return s.CurrentToken() != ""
}

// Generation changes whenever a session is created or destroyed. Long
// running operations compare generations to detect that the session they
// started with is gone.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Fingerprint returns a base58 SHA-256 digest of the current token, safe to
// print and log.
func (s *Store) Fingerprint() string {
	tok := s.CurrentToken()
	if tok == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(tok))
	return base58.Encode(hash[:])
}

func (s *Store) path() string {
	return filepath.Join(s.baseDir, sessionFile)
}

// read loads the session file. Missing or unreadable files read as empty.
func (s *Store) read() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() state {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("failed to read session")
		}
		return state{}
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Msg("failed to parse session, ignoring")
		return state{}
	}
	return st
}

// update applies fn to the current state and writes it back. newSession
// bumps the generation, which is the case for every login.
func (s *Store) update(fn func(st *state), newSession bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load()
	fn(&st)
	st.Version = 1
	st.UpdatedAt = time.Now().UTC()

	if err := s.save(&st); err != nil {
		return err
	}
	if newSession {
		s.generation++
	}
	return nil
}

// save writes the session file atomically.
func (s *Store) save(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempPath := s.path() + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tempPath, s.path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}
