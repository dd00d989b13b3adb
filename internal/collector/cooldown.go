package collector

import (
	"sync"
	"time"
)

// DefaultCooldown 数据源返回 429 后暂停调用的时长
const DefaultCooldown = 15 * time.Minute

// Cooldown 记录单个数据源的限流冷却截止时间，多个 goroutine 共享。
// 截止时间只会往后推：新的 429 延长冷却，成功的请求不会提前结束冷却。
type Cooldown struct {
	mu     sync.Mutex
	until  time.Time
	window time.Duration
	now    func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldown{window: window, now: time.Now}
}

// Active 当前是否仍在冷却期内
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.until)
}

// Trip 收到限流信号时调用，返回新的截止时间
func (c *Cooldown) Trip() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.now().Add(c.window)
	if next.After(c.until) {
		c.until = next
	}
	return c.until
}

// Until 当前记录的截止时间
func (c *Cooldown) Until() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until
}
