package sessions

import (
	"context"
	"time"

	"github.com/haulerhq/freightdesk/internal/store"
	"github.com/haulerhq/freightdesk/params"
)

type Config struct {
	Storage       store.Storage
	SessionMaxAge time.Duration
	CookieSecure  bool
	CookieName    string
}

func applyDefaults(conf Config) Config {
	if conf.SessionMaxAge <= 0 {
		conf.SessionMaxAge = params.SessionMaxAge
	}
	if conf.CookieName == "" {
		conf.CookieName = "sid"
	}
	conf.Storage = store.StorageWithPrefix(conf.Storage, params.SessionKeyPrefix)
	return conf
}

type Store struct {
	Config
}

func NewStore(config Config) *Store {
	return &Store{
		Config: applyDefaults(config),
	}
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data := SessionData{}
	if err := s.Storage.Get(ctx, id, &data); err != nil {
		return nil, err
	}

	return &Session{
		SessionData: data,
		id:          id,
		storage:     s.Storage,
	}, nil
}

// Save persists the session data, creating the record with the full max-age
// and sliding the expiry once less than half of it remains.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	now := time.Now()
	sess.LastSeen = now.UnixMilli()
	renew := time.Until(time.UnixMilli(sess.ExpireTime)) < (s.SessionMaxAge / 2)
	if sess.fresh || renew {
		sess.ExpireTime = now.Add(s.SessionMaxAge).UnixMilli()
		return s.Storage.Set(ctx, sess.id, &sess.SessionData, s.SessionMaxAge)
	}
	return s.Storage.Save(ctx, sess.id, &sess.SessionData)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Storage.Delete(ctx, id)
}
