// Package ratelimit 令牌桶限流，API 层按调用方地址（或客户端 IP）分桶。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket 令牌桶速率限制器
type TokenBucket struct {
	capacity   float64 // 桶容量
	tokens     float64 // 当前令牌数
	refillRate float64 // 每秒补充的令牌数
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建新的令牌桶（初始为满）
func NewTokenBucket(capacity int, refillPerSec float64) *TokenBucket {
	return newTokenBucket(capacity, refillPerSec, time.Now)
}

func newTokenBucket(capacity int, refillPerSec float64, now func() time.Time) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillPerSec,
		lastRefill: now(),
		now:        now,
	}
}

// refill 按经过的时间补充令牌（调用方持锁）
func (tb *TokenBucket) refill() time.Time {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 && tb.refillRate > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	}
	tb.lastRefill = now
	return now
}

// Allow 检查是否允许请求，允许时消耗一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		wait := tb.RetryAfter()
		if wait <= 0 {
			wait = 100 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 剩余可用令牌（向下取整）
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}

// RetryAfter 距离下一个令牌可用还需多久；refillRate 为 0 时返回 0
func (tb *TokenBucket) RetryAfter() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens >= 1 || tb.refillRate <= 0 {
		return 0
	}
	missing := 1 - tb.tokens
	return time.Duration(missing / tb.refillRate * float64(time.Second))
}

// Keyed 按 key 分桶，长时间未使用的桶会被回收
type Keyed struct {
	capacity   int
	refillRate float64
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	buckets  map[string]*keyedBucket
	lastSwep time.Time
}

type keyedBucket struct {
	*TokenBucket
	lastSeen time.Time
}

// NewKeyed 创建分桶限流器
func NewKeyed(capacity int, refillPerSec float64) *Keyed {
	return &Keyed{
		capacity:   capacity,
		refillRate: refillPerSec,
		idleTTL:    10 * time.Minute,
		now:        time.Now,
		buckets:    make(map[string]*keyedBucket),
	}
}

// Get 获取 key 对应的桶
func (k *Keyed) Get(key string) *TokenBucket {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	if now.Sub(k.lastSwep) > k.idleTTL {
		for id, b := range k.buckets {
			if now.Sub(b.lastSeen) > k.idleTTL {
				delete(k.buckets, id)
			}
		}
		k.lastSwep = now
	}
	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{TokenBucket: newTokenBucket(k.capacity, k.refillRate, k.now)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.TokenBucket
}

// Allow key 对应的桶是否允许本次请求
func (k *Keyed) Allow(key string) bool {
	return k.Get(key).Allow()
}

// Len 当前桶数量
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
