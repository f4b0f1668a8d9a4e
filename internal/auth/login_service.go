// Package auth implements the login state machine: brute-force guard check,
// principal lookup, credential verification, activation check, then session
// establishment. Every outcome is audited.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haulerhq/freightdesk/internal/audit"
	"github.com/haulerhq/freightdesk/internal/bruteforce"
	"github.com/haulerhq/freightdesk/internal/users"
	"github.com/haulerhq/freightdesk/model"
)

type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
}

type LoginService struct {
	users    UserProvider
	guard    *bruteforce.Guard
	recorder *audit.Recorder
}

func NewLoginService(userProvider UserProvider, guard *bruteforce.Guard, recorder *audit.Recorder) *LoginService {
	return &LoginService{
		users:    userProvider,
		guard:    guard,
		recorder: recorder,
	}
}

// guardKeys returns the independent lockout buckets for one attempt: the
// source address and the claimed account.
func guardKeys(username, ip string) []string {
	keys := []string{bruteforce.UserKey(username)}
	if ip != "" {
		keys = append(keys, bruteforce.IPKey(ip))
	}
	return keys
}

func (s *LoginService) recordFailure(ctx context.Context, username, ip string) {
	for _, key := range guardKeys(username, ip) {
		if err := s.guard.RecordFailure(ctx, key); err != nil {
			slog.Error("Could not record login failure", "key", key, "error", err)
		}
	}
}

// Login runs the authentication state machine. It returns the principal on
// success, a LockedError while blocked, ErrInvalidCredentials for unknown
// usernames and wrong passwords alike, and ErrAccountDeactivated for proven
// identities whose account was switched off.
func (s *LoginService) Login(ctx context.Context, username, password, ip string) (*model.User, error) {
	for _, key := range guardKeys(username, ip) {
		state, err := s.guard.Check(ctx, key)
		if err != nil {
			return nil, err
		}
		if state.Blocked {
			s.recorder.Record(ctx, audit.Entry{
				Action:     audit.ActionLoginBlocked,
				EntityType: audit.EntityUser,
				Detail:     "username=" + username,
				IP:         ip,
			})
			return nil, &LockedError{RemainingSeconds: state.RemainingSeconds}
		}
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, users.ErrUserNotFound) {
		s.recordFailure(ctx, username, ip)
		s.recorder.Record(ctx, audit.Entry{
			Action:     audit.ActionLoginFailed,
			EntityType: audit.EntityUser,
			Detail:     "username=" + username,
			IP:         ip,
		})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !users.VerifyPassword(user.Password, password) {
		s.recordFailure(ctx, username, ip)
		s.recorder.Record(ctx, audit.Entry{
			ActorID:    &user.ID,
			Action:     audit.ActionLoginFailed,
			EntityType: audit.EntityUser,
			EntityID:   &user.ID,
			IP:         ip,
		})
		return nil, ErrInvalidCredentials
	}

	// Identity is proven at this point, so a deactivated account does not
	// feed the brute-force counter.
	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	for _, key := range guardKeys(username, ip) {
		if err := s.guard.Clear(ctx, key); err != nil {
			slog.Error("Could not clear login failures", "key", key, "error", err)
		}
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:    &user.ID,
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   &user.ID,
		IP:         ip,
	})
	return user, nil
}

// Logout only audits; destroying the server-side session is the caller's job
// and must succeed from the client's perspective regardless.
func (s *LoginService) Logout(ctx context.Context, actorID uint, ip string) {
	if actorID == 0 {
		return
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:    &actorID,
		Action:     audit.ActionLogout,
		EntityType: audit.EntityUser,
		EntityID:   &actorID,
		IP:         ip,
	})
}

// CurrentUser resolves a session's principal. A vanished or deactivated
// principal invalidates the session.
func (s *LoginService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, users.ErrUserNotFound
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, users.ErrUserNotFound
	}
	return user, nil
}
