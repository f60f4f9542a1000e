// File: internal/infra/redis/session_store.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/metrics"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore persists sessions in Redis so several API replicas share them.
//
//	session:<id>             hash  created_at, updated_at (unix nanos)
//	session:<id>:profile     hash  fact key -> value
//	session:<id>:transcript  list  JSON messages, oldest first
//
// Every write refreshes the TTL of all three keys. Existence checks and writes
// run in one Lua script so a write never resurrects an expired session.
type SessionStore struct {
	cli     *redis.Client
	locker  Locker
	ttl     time.Duration
	lockTTL time.Duration
	sealer  Sealer
	log     zerolog.Logger
}

// Sealer encrypts profile values and transcript entries before they reach Redis.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type plainSealer struct{}

func (plainSealer) Seal(s string) (string, error) { return s, nil }
func (plainSealer) Open(s string) (string, error) { return s, nil }

func NewSessionStore(c *Client, ttl, lockTTL time.Duration, logger *zerolog.Logger) *SessionStore {
	return &SessionStore{
		cli:     c.cli,
		locker:  NewLocker(c),
		ttl:     ttl,
		lockTTL: lockTTL,
		sealer:  plainSealer{},
		log:     logger.With().Str("component", "RedisSessionStore").Logger(),
	}
}

// WithSealer encrypts session content at rest. Entries written in plaintext
// earlier stay readable when the sealer passes unsealed values through.
func (s *SessionStore) WithSealer(sealer Sealer) *SessionStore {
	s.sealer = sealer
	return s
}

func sessionKeys(id string) []string {
	base := "session:" + id
	return []string{base, base + ":profile", base + ":transcript"}
}

func lockKey(id string) string { return "session:" + id + ":lock" }

const touchAll = `
for i = 1, #KEYS do
	redis.call("PEXPIRE", KEYS[i], ARGV[2])
end`

var luaInit = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	redis.call("HSET", KEYS[1], "created_at", ARGV[1], "updated_at", ARGV[1])
end` + touchAll + `
return 1`)

var luaSetFact = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[3], ARGV[4])
redis.call("HSET", KEYS[1], "updated_at", ARGV[1])` + touchAll + `
return 1`)

var luaAppend = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[3], ARGV[3])
redis.call("HSET", KEYS[1], "updated_at", ARGV[1])` + touchAll + `
return 1`)

func (s *SessionStore) args(extra ...any) []any {
	return append([]any{time.Now().UnixNano(), s.ttl.Milliseconds()}, extra...)
}

func (s *SessionStore) Init(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id: %w", domain.ErrInvalidInput)
	}
	if err := luaInit.Run(ctx, s.cli, sessionKeys(sessionID), s.args()...).Err(); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	return nil
}

func (s *SessionStore) SetProfileFact(ctx context.Context, sessionID, key, value string) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal profile fact: %w", err)
	}
	ok, err := luaSetFact.Run(ctx, s.cli, sessionKeys(sessionID), s.args(key, sealed)...).Int()
	if err != nil {
		return fmt.Errorf("set profile fact: %w", err)
	}
	if ok == 0 {
		return notFound(sessionID)
	}
	return nil
}

func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, role model.Role, content string) error {
	data, err := json.Marshal(model.Message{Role: role, Content: content, Timestamp: time.Now()})
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(string(data))
	if err != nil {
		return fmt.Errorf("seal message: %w", err)
	}
	ok, err := luaAppend.Run(ctx, s.cli, sessionKeys(sessionID), s.args(sealed)...).Int()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if ok == 0 {
		return notFound(sessionID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	keys := sessionKeys(sessionID)
	var (
		meta    *redis.StringStringMapCmd
		profile *redis.StringStringMapCmd
		msgs    *redis.StringSliceCmd
	)
	_, err := s.cli.Pipelined(ctx, func(p redis.Pipeliner) error {
		meta = p.HGetAll(ctx, keys[0])
		profile = p.HGetAll(ctx, keys[1])
		msgs = p.LRange(ctx, keys[2], 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	m := meta.Val()
	if len(m) == 0 {
		metrics.IncSessionLookup("redis", "miss")
		return nil, notFound(sessionID)
	}
	metrics.IncSessionLookup("redis", "hit")

	sess := &model.Session{
		ID:         sessionID,
		Profile:    make(map[string]string, len(profile.Val())),
		Transcript: make([]model.Message, 0, len(msgs.Val())),
		CreatedAt:  unixNanos(m["created_at"]),
		UpdatedAt:  unixNanos(m["updated_at"]),
	}
	for k, v := range profile.Val() {
		plain, err := s.sealer.Open(v)
		if err != nil {
			return nil, fmt.Errorf("open profile fact %q: %w", k, err)
		}
		sess.Profile[k] = plain
	}
	for i, raw := range msgs.Val() {
		plain, err := s.sealer.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("open transcript entry %d: %w", i, err)
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(plain), &msg); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Int("pos", i).Msg("skipping undecodable transcript entry")
			continue
		}
		sess.Transcript = append(sess.Transcript, msg)
	}
	return sess, nil
}

// Lock takes the distributed per-session lock. It waits until ctx is done.
func (s *SessionStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKey(sessionID)
	token, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, err
	}
	return func() {
		// release even when the caller's ctx is already cancelled
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Unlock(uctx, key, token); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("session unlock failed")
		}
	}, nil
}

func unixNanos(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func notFound(id string) error {
	return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
}
