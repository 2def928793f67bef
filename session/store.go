package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the mirrored session record does not exist
// (logged out, expired, or never created).
var ErrNotFound = errors.New("session record not found")

// ErrRotateConflict is returned when the refresh token presented for
// rotation is not the one the mirror holds. The stored pair is left
// untouched: rotation replaces both tokens or neither.
var ErrRotateConflict = errors.New("refresh token rotation conflict")

// ErrRedisUnavailable is an exported constant or variable used by the session engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// HashToken returns the SHA-256 digest of a token. Only digests are
// mirrored server-side; raw tokens live exclusively in the signed cookie.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

const rotateStatusNotFound = 0
const rotateStatusRotated = 1
const rotateStatusConflict = 2

// Rotation is a compare-and-swap on the stored refresh digest: the pair
// only advances when the caller still holds the current one.
const rotateScript = `
local cur = redis.call("HGET", KEYS[1], "rth")
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return 2
end
redis.call("HSET", KEYS[1], "rth", ARGV[2], "exp", ARGV[3])
return 1
`

var rotateLua = redis.NewScript(rotateScript)

const deleteScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var deleteLua = redis.NewScript(deleteScript)

// Store mirrors active sessions into Redis so the engine can answer "is this
// session still live" and revoke sessions across nodes. Records hold token
// digests and claim flags, never token material.
//
//	Docs: docs/session.md
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] with the given key prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sg"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) sessionKey(tenantID, sessionID string) string {
	return s.prefix + ":sess:" + tenantID + ":" + sessionID
}

func (s *Store) userKey(tenantID, userID string) string {
	return s.prefix + ":user:" + tenantID + ":" + userID
}

// Save mirrors sess for the given lifetime, replacing any existing record.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil {
		return errors.New("nil session")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := s.sessionKey(sess.TenantID, sess.SessionID)
	rth := HashToken(sess.RefreshToken)

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key,
		"uid", sess.UserID,
		"email", sess.Email,
		"rth", hex.EncodeToString(rth[:]),
		"npr", boolField(sess.NeedsPasswordReset),
		"cat", strconv.FormatInt(sess.CreatedAt, 10),
		"exp", strconv.FormatInt(sess.ExpiresAt, 10),
	)
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, s.userKey(sess.TenantID, sess.UserID), sess.SessionID)
	pipe.Expire(ctx, s.userKey(sess.TenantID, sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Record is the mirrored view of a session as the store holds it.
type Record struct {
	UserID             string
	Email              string
	RefreshHash        string
	NeedsPasswordReset bool
	CreatedAt          int64
	ExpiresAt          int64
}

// Get loads the mirrored record, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, tenantID, sessionID string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.sessionKey(tenantID, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rec := &Record{
		UserID:             fields["uid"],
		Email:              fields["email"],
		RefreshHash:        fields["rth"],
		NeedsPasswordReset: fields["npr"] == "1",
	}
	rec.CreatedAt, _ = strconv.ParseInt(fields["cat"], 10, 64)
	rec.ExpiresAt, _ = strconv.ParseInt(fields["exp"], 10, 64)
	return rec, nil
}

// RotateRefreshHash advances the stored refresh digest from old to new and
// records the new token expiry. Returns [ErrNotFound] when the session is
// gone and [ErrRotateConflict] when the caller's pair is stale; the record
// is unchanged in both cases.
func (s *Store) RotateRefreshHash(ctx context.Context, tenantID, sessionID string, oldHash, newHash [32]byte, expiresAt int64) error {
	status, err := rotateLua.Run(ctx,
		s.redis,
		[]string{s.sessionKey(tenantID, sessionID)},
		hex.EncodeToString(oldHash[:]),
		hex.EncodeToString(newHash[:]),
		strconv.FormatInt(expiresAt, 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusConflict:
		return ErrRotateConflict
	default:
		return ErrNotFound
	}
}

// SetNeedsPasswordReset flips the mirrored temporary-password flag.
func (s *Store) SetNeedsPasswordReset(ctx context.Context, tenantID, sessionID string, v bool) error {
	n, err := s.redis.Exists(ctx, s.sessionKey(tenantID, sessionID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.redis.HSet(ctx, s.sessionKey(tenantID, sessionID), "npr", boolField(v)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the mirrored record. Deleting an absent session is not an
// error.
func (s *Store) Delete(ctx context.Context, tenantID, sessionID, userID string) error {
	err := deleteLua.Run(ctx,
		s.redis,
		[]string{s.sessionKey(tenantID, sessionID), s.userKey(tenantID, userID)},
		sessionID,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every mirrored session of a user within the
// tenant.
func (s *Store) DeleteAllForUser(ctx context.Context, tenantID, userID string) error {
	ids, err := s.redis.SMembers(ctx, s.userKey(tenantID, userID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	pipe := s.redis.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.sessionKey(tenantID, id))
	}
	pipe.Del(ctx, s.userKey(tenantID, userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
