package marketplace

import (
	"context"
	"sync"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

type guardCtxKey struct{}

// Guard 进程级互斥锁，保护 Buy / Withdraw 这类会在中途调用外部系统的操作。
//
// 持锁期间传给外部调用方的 ctx 带有标记；外部调用方若用该 ctx 回调市场
// （重入），会直接得到 ErrReentrantCall。其它 goroutine 的并发调用则阻塞等待。
//
// 重入只能通过 ctx 标记识别。回调若丢掉 ctx（例如改用 context.Background()）
// 在同一 goroutine 里再调用市场，会卡死在不可重入的 mutex 或资产锁上。
// Oracle 和 PaymentChannel 的实现必须把收到的 ctx 原样传下去。
type Guard struct {
	mu sync.Mutex
}

// Enter 获取锁，返回带标记的 ctx 和释放函数（必须 defer 调用）
func (g *Guard) Enter(ctx context.Context) (context.Context, func(), error) {
	if g.Held(ctx) {
		return ctx, func() {}, domain.ErrReentrantCall
	}
	g.mu.Lock()
	var once sync.Once
	release := func() { once.Do(g.mu.Unlock) }
	return context.WithValue(ctx, guardCtxKey{}, g), release, nil
}

// Held 当前调用链是否已经处于本 Guard 的临界区内
func (g *Guard) Held(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(guardCtxKey{}).(*Guard)
	return owner == g
}

// keyLocks 按资产加锁，同一资产上的 list/cancel/reprice/buy 串行执行
type keyLocks struct {
	mu    sync.Mutex
	locks map[domain.AssetKey]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[domain.AssetKey]*keyLock)}
}

func (k *keyLocks) lock(key domain.AssetKey) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
