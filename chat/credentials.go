package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kvchat/store"
	"kvchat/types"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// userRecord is the stored shape of an identity, digest included. Only the
// public view in types.User ever crosses the package boundary.
type userRecord struct {
	Id             string     `json:"id"`
	Username       string     `json:"username"`
	PasswordDigest string     `json:"password_digest"`
	CreatedAt      time.Time  `json:"created_at"`
	IsOnline       bool       `json:"is_online"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt   *time.Time `json:"last_logout_at,omitempty"`
}

func (u userRecord) public() types.User {
	return types.User{
		Id:        u.Id,
		Username:  u.Username,
		IsOnline:  u.IsOnline,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates a new account and opens a session for it. Usernames are
// unique under case-insensitive comparison.
func (s *Service) Register(ctx context.Context, username, password, confirmPassword string) (types.Session, error) {
	if username == "" || password == "" {
		return types.Session{}, NewValidationError("Username and password are required")
	}

	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return types.Session{}, NewValidationError(fmt.Sprintf("Username must be at least %d characters", minUsernameLen))
	}
	if len(password) < minPasswordLen {
		return types.Session{}, NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if password != confirmPassword {
		return types.Session{}, NewValidationError("Passwords do not match")
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return types.Session{}, fmt.Errorf("hash password: %w", err)
	}

	var session types.Session
	err = updateList(ctx, s.store, usersKey, func(users []userRecord) ([]userRecord, error) {
		for _, u := range users {
			if strings.EqualFold(u.Username, username) {
				return nil, NewDuplicateUsernameError()
			}
		}

		record := userRecord{
			Id:             s.newUserId(),
			Username:       username,
			PasswordDigest: digest,
			CreatedAt:      s.now(),
			IsOnline:       true,
		}

		session = record.public()
		return append(users, record), nil
	})
	if err != nil {
		return types.Session{}, err
	}

	if err := s.saveSession(ctx, session); err != nil {
		return types.Session{}, err
	}

	s.incr(MetricRegistrations)
	s.log.Printf("registered user %q", session.Username)
	return session, nil
}

// Login verifies credentials and marks the user online. The failure is
// identical for an unknown username and a wrong password.
func (s *Service) Login(ctx context.Context, username, password string) (types.Session, error) {
	if username == "" || password == "" {
		return types.Session{}, NewValidationError("Username and password are required")
	}

	var session types.Session
	err := updateList(ctx, s.store, usersKey, func(users []userRecord) ([]userRecord, error) {
		for i, u := range users {
			if !strings.EqualFold(u.Username, username) {
				continue
			}

			if !s.hasher.Verify(u.PasswordDigest, password) {
				return nil, NewInvalidCredentialsError()
			}

			now := s.now()
			users[i].IsOnline = true
			users[i].LastLoginAt = &now
			session = users[i].public()
			return users, nil
		}

		return nil, NewInvalidCredentialsError()
	})
	if err != nil {
		return types.Session{}, err
	}

	if err := s.saveSession(ctx, session); err != nil {
		return types.Session{}, err
	}

	s.incr(MetricLogins)
	s.log.Printf("user %q logged in", session.Username)
	return session, nil
}

// Logout marks the user offline and clears the persisted session. It has no
// failure modes of its own; only store errors propagate.
func (s *Service) Logout(ctx context.Context, session types.Session) error {
	err := updateList(ctx, s.store, usersKey, func(users []userRecord) ([]userRecord, error) {
		for i, u := range users {
			if u.Id == session.Id {
				now := s.now()
				users[i].IsOnline = false
				users[i].LastLogoutAt = &now
				break
			}
		}
		return users, nil
	})
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.incr(MetricLogouts)
	s.log.Printf("user %q logged out", session.Username)
	return nil
}

// CurrentSession restores the persisted session, if any.
func (s *Service) CurrentSession(ctx context.Context) (types.Session, bool, error) {
	raw, err := s.store.Get(ctx, sessionKey)
	if err == store.ErrKeyNotFound {
		return types.Session{}, false, nil
	}
	if err != nil {
		return types.Session{}, false, err
	}

	var session types.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return types.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

func (s *Service) saveSession(ctx context.Context, session types.Session) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.store.Set(ctx, sessionKey, encoded); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
