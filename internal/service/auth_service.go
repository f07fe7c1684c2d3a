package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"heartloom/internal/errs"
	"heartloom/internal/models"
	"heartloom/internal/settings"
	"heartloom/internal/store"
	"heartloom/internal/utils"
)

// sessionKey is the fixed namespaced key for the remembered sign-in triple.
const sessionKey = "heartloom.session"

// defaultDisplayName fills in for sign-ins that carry neither a name nor
// an email address.
const defaultDisplayName = "Heartloom User"

// AuthService resolves external identity assertions to local user accounts
// and remembers the signed-in user across restarts.
type AuthService struct {
	store    *store.Store
	settings *settings.DB
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(st *store.Store, set *settings.DB, logger *zap.Logger) *AuthService {
	return &AuthService{store: st, settings: set, logger: logger}
}

// SignIn exchanges a completed external sign-in for a local user account
// and remembers the session. The assertion's signature is the provider's
// concern; only the subject claim is read here.
func (s *AuthService) SignIn(provider, assertion, displayName, email string) (*models.UserAccount, error) {
	subject, err := SubjectFromAssertion(assertion)
	if err != nil {
		return nil, err
	}

	user, err := s.Resolve(subject, provider, displayName, email)
	if err != nil {
		return nil, err
	}

	if err := s.saveSession(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SubjectFromAssertion extracts the subject identifier from a signed
// identity assertion's payload. The payload is decoded without signature
// verification; a malformed token or a missing subject claim is Invalid.
func SubjectFromAssertion(assertion string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return "", fmt.Errorf("malformed identity assertion: %w", errs.ErrInvalid)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("identity assertion has no subject: %w", errs.ErrInvalid)
	}
	return subject, nil
}

// Resolve maps an external (subject, provider) identity to a local user,
// creating one on first sign-in and refreshing profile fields on repeat
// sign-ins. Resolving the same inputs repeatedly changes nothing after the
// first call.
func (s *AuthService) Resolve(subjectID, provider, displayName, email string) (*models.UserAccount, error) {
	name := strings.TrimSpace(displayName)
	mail := strings.TrimSpace(email)
	if name == "" {
		if mail == "" {
			name = defaultDisplayName
		} else {
			name = mail
		}
	}

	var resolved models.UserAccount
	err := s.store.Update(func(d *store.Dataset) error {
		if existing := d.FindUserByAuth(subjectID, provider); existing != nil {
			changed := existing.DisplayName != name
			existing.DisplayName = name
			if mail != "" && existing.Email != mail {
				existing.Email = mail
				changed = true
			}
			resolved = *existing
			if !changed {
				return store.ErrNoChange
			}
			return nil
		}

		resolved = models.UserAccount{
			ID:            utils.GenerateID(),
			AuthSubjectID: subjectID,
			Provider:      provider,
			DisplayName:   name,
			Email:         mail,
			CreatedAt:     time.Now().UTC(),
		}
		d.UpsertUser(resolved)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return &resolved, nil
}

// RestoreSession returns the remembered user, or nil when no usable
// session exists. Any failure degrades to "no session" so the caller
// prompts for a fresh sign-in instead of crashing.
func (s *AuthService) RestoreSession() *models.UserAccount {
	raw, ok, err := s.settings.Get(sessionKey)
	if err != nil {
		s.logger.Warn("failed to read stored session", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var session models.StoredSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		s.logger.Warn("stored session unreadable", zap.Error(err))
		return nil
	}

	if user := s.store.UserByID(session.UserID); user != nil {
		return user
	}

	// The user id may predate a reinstall; fall back to the identity pair
	// and refresh the stored session.
	if user := s.store.UserByAuth(session.AuthSubjectID, session.Provider); user != nil {
		if err := s.saveSession(user); err != nil {
			s.logger.Warn("failed to refresh stored session", zap.Error(err))
		}
		return user
	}
	return nil
}

// SignOut forgets the remembered session.
func (s *AuthService) SignOut() error {
	if err := s.settings.Delete(sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *AuthService) saveSession(user *models.UserAccount) error {
	session := models.StoredSession{
		UserID:        user.ID,
		AuthSubjectID: user.AuthSubjectID,
		Provider:      user.Provider,
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.settings.Set(sessionKey, string(raw)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
