// Package chat implements the chat core: credential store, room directory,
// access control and the per-room message log, all persisted in a shared
// key-value namespace that independently polling clients converge on.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/teris-io/shortid"

	"kvchat/stats"
	"kvchat/store"
)

// Metric names registered by the service.
const (
	MetricRegistrations = "Registrations"
	MetricLogins        = "Logins"
	MetricLogouts       = "Logouts"
	MetricRoomsCreated  = "RoomsCreated"
	MetricJoins         = "Joins"
	MetricMessagesSent  = "MessagesSent"
)

type Service struct {
	store  store.Store
	log    *log.Logger
	hasher PasswordHasher
	stats  stats.StatsProvider

	// retention caps the per-room log length; zero keeps everything.
	retention int

	// overridable in tests
	now       func() time.Time
	newUserId func() string
	newId     func(prefix string) (string, error)
}

// NewService wires the chat core to a store. The hasher defaults to bcrypt;
// pass LegacyHasher to read stores written by the original browser build.
// A nil stats provider disables counting.
func NewService(logger *log.Logger, st store.Store, hasher PasswordHasher, sp stats.StatsProvider, retention int) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	s := &Service{
		store:     st,
		log:       logger,
		hasher:    hasher,
		stats:     sp,
		retention: retention,
		now:       Now,
		newUserId: func() string { return "user_" + uuid.NewString() },
		newId:     generateShortId,
	}

	if sp != nil {
		for _, name := range []string{
			MetricRegistrations, MetricLogins, MetricLogouts,
			MetricRoomsCreated, MetricJoins, MetricMessagesSent,
		} {
			sp.RegisterMetric(name)
		}
	}

	return s
}

func (s *Service) incr(name string) {
	if s.stats != nil {
		s.stats.Incr(name)
	}
}

func generateShortId(prefix string) (string, error) {
	sid, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate short id: %w", err)
	}
	return prefix + sid, nil
}

// Now is the timestamp source for every record the core writes.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

// updateList runs a serialized read-modify-write of a JSON-encoded
// collection. An error from fn aborts the update with the store unchanged,
// which is what keeps failed operations free of partial writes.
func updateList[T any](ctx context.Context, st store.Store, key string, fn func(items []T) ([]T, error)) error {
	return st.Update(ctx, key, func(old []byte) ([]byte, error) {
		var items []T
		if len(old) > 0 {
			if err := json.Unmarshal(old, &items); err != nil {
				return nil, fmt.Errorf("decode %q: %w", key, err)
			}
		}

		next, err := fn(items)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		return encoded, nil
	})
}

// getList reads a JSON-encoded collection; an absent key is an empty
// collection, matching the "or '[]'" reads of the original system.
func getList[T any](ctx context.Context, st store.Store, key string) ([]T, error) {
	raw, err := st.Get(ctx, key)
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return items, nil
}
