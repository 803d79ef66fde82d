// Package redisstore keeps verification codes in Redis so they expire
// server-side and survive API restarts without touching the document store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/boddenberg/fuel-portal-bfa-go/internal/port"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("redisstore")

var _ port.CodeStore = (*CodeStore)(nil)

const keyPrefix = "2fa:"

// consumeScript deletes the code only if it matches and is still live, so
// two concurrent verifications cannot both succeed.
var consumeScript = goredis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code or code ~= ARGV[1] then
  return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if not exp or exp <= tonumber(ARGV[2]) then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// CodeStore implements port.CodeStore on a Redis hash per CNPJ.
type CodeStore struct {
	rdb goredis.UniversalClient
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient) *CodeStore {
	return &CodeStore{rdb: rdb}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*CodeStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(rdb), nil
}

// Close closes the underlying client.
func (s *CodeStore) Close() error {
	return s.rdb.Close()
}

// Ping checks Redis is reachable.
func (s *CodeStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func key(cnpj string) string {
	return keyPrefix + cnpj
}

func (s *CodeStore) SaveCode(ctx context.Context, code *domain.VerificationCode) error {
	ctx, span := tracer.Start(ctx, "Redis.SaveCode")
	defer span.End()

	k := key(code.CNPJ)
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"code", code.Code,
			"method", code.Method,
			"created_at", strconv.FormatInt(code.CreatedAt.UnixMilli(), 10),
			"expires_at", strconv.FormatInt(code.ExpiresAt.UnixMilli(), 10),
		)
		pipe.PExpireAt(ctx, k, code.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save code: %w", err)
	}
	return nil
}

func (s *CodeStore) ConsumeCode(ctx context.Context, cnpj, code string, now time.Time) (bool, error) {
	ctx, span := tracer.Start(ctx, "Redis.ConsumeCode")
	defer span.End()

	n, err := consumeScript.Run(ctx, s.rdb, []string{key(cnpj)}, code, now.UnixMilli()).Int()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis consume code: %w", err)
	}
	return n == 1, nil
}

func (s *CodeStore) DeleteCodes(ctx context.Context, cnpj string) error {
	ctx, span := tracer.Start(ctx, "Redis.DeleteCodes")
	defer span.End()

	if err := s.rdb.Del(ctx, key(cnpj)).Err(); err != nil {
		return fmt.Errorf("redis delete code: %w", err)
	}
	return nil
}
