package cache

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/sentry/tracing"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "face-attend:"

const (
	// sweepInterval 进程内实现清理过期 key 的最小间隔
	sweepInterval = time.Minute
	// sweepThreshold key 数量达到该值时立即清理
	sweepThreshold = 10000
)

// ErrDisabled 未配置 redis
var ErrDisabled = errors.New("redis disabled")

var Default = New(nil)

// Store 封装签到锁与限流计数，rdb 为空时退化为进程内实现
type Store struct {
	rdb *redis.Client

	mu        sync.Mutex
	mem       map[string]*entry
	nextSweep time.Time
	now       func() time.Time
}

type entry struct {
	count   int64
	expires time.Time
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, mem: make(map[string]*entry), now: time.Now}
}

// sweep 删除过期的进程内 key，调用方需持有 mu
func (s *Store) sweep(now time.Time) {
	if now.Before(s.nextSweep) && len(s.mem) < sweepThreshold {
		return
	}
	for k, e := range s.mem {
		if !now.Before(e.expires) {
			delete(s.mem, k)
		}
	}
	s.nextSweep = now.Add(sweepInterval)
}

func Init() {
	cfg := config.Get().Redis
	if cfg.Host == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if tracing.IsEnabled() {
		rdb.AddHook(tracing.NewRedisSentryHook())
	}
	Default = New(rdb)
}

func (s *Store) Enabled() bool {
	return s.rdb != nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.rdb == nil {
		return ErrDisabled
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// SetNX key 不存在时写入并返回 true，ttl 到期自动释放
func (s *Store) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.rdb != nil {
		return s.rdb.SetNX(ctx, keyPrefix+key, 1, ttl).Result()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	if e, ok := s.mem[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	s.mem[key] = &entry{count: 1, expires: now.Add(ttl)}
	return true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	if s.rdb != nil {
		return s.rdb.Del(ctx, keyPrefix+key).Err()
	}

	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	return nil
}

// Incr 固定窗口计数，窗口从第一次计数开始
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s.rdb != nil {
		n, err := s.rdb.Incr(ctx, keyPrefix+key).Result()
		if err != nil {
			return 0, err
		}
		if n == 1 {
			if err := s.rdb.Expire(ctx, keyPrefix+key, window).Err(); err != nil {
				return 0, err
			}
		}
		return n, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	e, ok := s.mem[key]
	if !ok || !now.Before(e.expires) {
		e = &entry{expires: now.Add(window)}
		s.mem[key] = e
	}
	e.count++
	return e.count, nil
}
