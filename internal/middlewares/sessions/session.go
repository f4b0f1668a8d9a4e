package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/haulerhq/freightdesk/internal/store"
)

type SessionData struct {
	IP         string `redis:"ip"`          // client ip address at login
	UserID     uint   `redis:"user_id"`     // authenticated principal id, zero when anonymous
	LoginTime  int64  `redis:"login_time"`  // unix milliseconds
	LastSeen   int64  `redis:"last_seen"`   // unix milliseconds
	ExpireTime int64  `redis:"expire_time"` // unix milliseconds
}

func (s *SessionData) IsLoggedIn() bool {
	return s.UserID != 0
}

type Session struct {
	SessionData               // session payload
	id          string        // opaque session id
	storage     store.Storage // storage backend
	fresh       bool          // is session newly created
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Could not generate session id", "error", err)
		return ""
	}
	return hex.EncodeToString(b)
}

func newSession(storage store.Storage) *Session {
	return &Session{
		id:      generateSessionID(),
		storage: storage,
		fresh:   true,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) IsFresh() bool {
	return s.fresh
}

func (s *Session) SetField(ctx context.Context, field string, val any) error {
	return s.storage.SetAttr(ctx, s.id, field, val)
}

func (s *Session) GetField(ctx context.Context, field string, val any) error {
	return s.storage.GetAttr(ctx, s.id, field, val)
}

func (s *Session) DeleteField(ctx context.Context, field string) error {
	return s.storage.DelAttr(ctx, s.id, field)
}
