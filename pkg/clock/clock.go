package clock

import (
	"sync"
	"time"
)

// Clock 时间源抽象
// 业务层一律通过注入的 Clock 取当前时间，保证领域逻辑可确定性测试
type Clock interface {
	Now() time.Time
}

// Real 系统时钟
type Real struct{}

// Now 返回系统当前时间
func (Real) Now() time.Time { return time.Now() }

// Fake 可手动拨动的测试时钟
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 创建固定在 t 的测试时钟
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now 返回当前设定的时间
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 向前拨动 d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set 直接设定当前时间
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
