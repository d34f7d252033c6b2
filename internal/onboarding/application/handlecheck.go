package application

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// HandleStatus 可用性探测结果
type HandleStatus string

const (
	HandleAvailable HandleStatus = "AVAILABLE"
	HandleTaken     HandleStatus = "TAKEN"
	HandleUnknown   HandleStatus = "UNKNOWN"
)

// defaultDebounce 探测静默窗口
const defaultDebounce = 500 * time.Millisecond

// HandleChecker handle 可用性探测器
//
// 探测结果只是建议：写入时仍由唯一约束兜底（与并发注册的竞争在落库处
// 转为用户可修正的冲突）。
type HandleChecker struct {
	profiles domain.ProfileRepository
}

// NewHandleChecker 创建探测器
func NewHandleChecker(profiles domain.ProfileRepository) *HandleChecker {
	return &HandleChecker{profiles: profiles}
}

// Check 探测 handle 是否可用；excludeProfileID 排除自身，重存未改动的
// handle 仍视为可用
func (c *HandleChecker) Check(ctx context.Context, handle, excludeProfileID string) (HandleStatus, error) {
	canonical := domain.CanonicalHandle(handle)
	if !domain.ValidHandle(canonical) {
		return HandleUnknown, &domain.ValidationError{Field: "handle", Reason: "must be 3-30 lowercase letters, digits or underscores"}
	}

	exists, err := c.profiles.HandleExists(ctx, canonical, excludeProfileID)
	if err != nil {
		return HandleUnknown, &domain.TransientRemoteError{Op: "handle check", Err: err}
	}
	if exists {
		return HandleTaken, nil
	}
	return HandleAvailable, nil
}

// ProbeResult 异步探测回调结果
type ProbeResult struct {
	Handle string
	Status HandleStatus
	Err    error
}

// Debouncer 防抖探测前端
//
// 每次击键调用 Probe；只有静默窗口内没有后续调用才真正发起探测，且只有
// 仍是最新一代的结果会回调（last-call-wins）。
type Debouncer struct {
	checker *HandleChecker
	delay   time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// NewDebouncer 创建防抖前端；delay 为 0 时使用默认静默窗口
func NewDebouncer(checker *HandleChecker, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = defaultDebounce
	}
	return &Debouncer{checker: checker, delay: delay}
}

// Probe 登记一次探测请求；被后续调用取代的请求不会产生回调
func (d *Debouncer) Probe(ctx context.Context, handle, excludeProfileID string, fn func(ProbeResult)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if d.superseded(gen) {
			return
		}
		status, err := d.checker.Check(ctx, handle, excludeProfileID)
		// 探测在途期间被新请求取代则丢弃结果
		if d.superseded(gen) {
			return
		}
		fn(ProbeResult{Handle: handle, Status: status, Err: err})
	})
}

func (d *Debouncer) superseded(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen != d.gen
}
