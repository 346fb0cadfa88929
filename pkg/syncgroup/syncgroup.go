package syncgroup

import (
	"sync"
)

// SyncGroup 是 sync.WaitGroup 的包装器，简化 goroutine 生命周期管理。
// 先 Add 登记，再 Run 统一启动；Run 之后新登记的函数留到下一次 Run。
type SyncGroup struct {
	wg sync.WaitGroup

	mu  sync.Mutex
	fns []func()
}

// NewSyncGroup 创建新的 SyncGroup
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add 登记一个 goroutine 函数
func (w *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fns = append(w.fns, fn)
}

// Run 启动所有已登记的函数并清空登记列表
func (w *SyncGroup) Run() {
	w.mu.Lock()
	fns := w.fns
	w.fns = nil
	w.mu.Unlock()

	w.wg.Add(len(fns))
	for _, fn := range fns {
		go func(doFunc func()) {
			defer w.wg.Done()
			doFunc()
		}(fn)
	}
}

// Go 直接启动一个 goroutine 并纳入等待
func (w *SyncGroup) Go(fn func()) {
	w.Add(fn)
	w.Run()
}

// Wait 等待所有已启动的 goroutine 完成
func (w *SyncGroup) Wait() {
	w.wg.Wait()
}
