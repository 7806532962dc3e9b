package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maxg-dev/santiscl/internal/platform/config"
)

// Commands is the subset of redis commands used by the storefront.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// NewRedisClient connects to the configured redis server and verifies it answers PING.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("cache: redis address is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return client, nil
}

// Namespace stores JSON values under a versioned key prefix. Bumping the version
// invalidates every key of the namespace at once.
type Namespace struct {
	cmds   Commands
	prefix string
	ttl    time.Duration
}

// NewNamespace binds a key prefix to cmds. Values expire after ttl.
func NewNamespace(cmds Commands, prefix string, ttl time.Duration) (*Namespace, error) {
	if cmds == nil {
		return nil, errors.New("cache: commands are required")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return nil, errors.New("cache: prefix is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Namespace{cmds: cmds, prefix: prefix, ttl: ttl}, nil
}

// Slot is a key resolved against the namespace version seen when it was read.
// Filling a slot after an invalidation writes under the old version, so a value
// loaded before a concurrent write is never served as current.
type Slot struct {
	ns   *Namespace
	key  string
	full string
}

// Get decodes the value stored under key into dst and reports whether it was present.
// The returned slot is the place a miss should be filled.
func (n *Namespace) Get(ctx context.Context, key string, dst any) (Slot, bool, error) {
	full, err := n.key(ctx, key)
	if err != nil {
		return Slot{}, false, err
	}
	slot := Slot{ns: n, key: key, full: full}
	raw, err := n.cmds.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return slot, false, nil
	}
	if err != nil {
		return slot, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return slot, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return slot, true, nil
}

// Set stores value in the slot.
func (s Slot) Set(ctx context.Context, value any) error {
	if s.ns == nil {
		return errors.New("cache: slot was not resolved")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", s.key, err)
	}
	if err := s.ns.cmds.Set(ctx, s.full, data, s.ns.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", s.key, err)
	}
	return nil
}

// Invalidate drops every key of the namespace.
func (n *Namespace) Invalidate(ctx context.Context) error {
	if err := n.cmds.Incr(ctx, n.versionKey()).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", n.prefix, err)
	}
	return nil
}

func (n *Namespace) key(ctx context.Context, key string) (string, error) {
	version, err := n.cmds.Get(ctx, n.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		version = 0
	} else if err != nil {
		return "", fmt.Errorf("cache: read version of %s: %w", n.prefix, err)
	}
	return n.prefix + ":v" + strconv.FormatInt(version, 10) + ":" + key, nil
}

func (n *Namespace) versionKey() string {
	return n.prefix + ":version"
}
