package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/domain"
)

// BudgetAction is what happens to an embedding call once the token spend
// crosses a limit.
type BudgetAction string

const (
	// BudgetActionWarn logs the overrun and lets the call through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the call.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists spend counters across restarts. IncrBy must be safe
// to repeat.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetTracker caps provider token spend per day and per month. Check reads
// only the in-memory counters so it costs nothing on the query path; Record
// bumps them and then writes behind to the store when one is attached.
type BudgetTracker struct {
	mu           sync.Mutex
	dailyUsed    int64
	monthlyUsed  int64
	dailyLimit   int64
	monthlyLimit int64
	action       BudgetAction
	provider     string
	currentDay   time.Time
	currentMonth time.Time
	store        BudgetStore
	logger       *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit means that window is
// uncapped.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	now := time.Now().UTC()
	return &BudgetTracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		currentDay:   dayStart(now),
		currentMonth: monthStart(now),
		logger:       logger,
	}
}

// WithStore attaches persistence and restores the counters for the current
// windows, so a restart does not reset the spend.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.restoreCounters(ctx)
	return b
}

func (b *BudgetTracker) restoreCounters(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()

	if val, err := b.store.Get(ctx, b.dayKey(now)); err == nil {
		b.dailyUsed = val
	} else {
		b.logger.Warn("Could not restore daily spend counter", zap.Error(err))
	}
	if val, err := b.store.Get(ctx, b.monthKey(now)); err == nil {
		b.monthlyUsed = val
	} else {
		b.logger.Warn("Could not restore monthly spend counter", zap.Error(err))
	}

	b.logger.Info("Embedding budget counters restored",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
}

func (b *BudgetTracker) dayKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, b.provider, t.Format("2006-01-02"))
}

func (b *BudgetTracker) monthKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, b.provider, t.Format("2006-01"))
}

// Check reports whether another embedding call may proceed. In-memory only.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollWindows()

	overDaily := b.dailyLimit > 0 && b.dailyUsed >= b.dailyLimit
	overMonthly := b.monthlyLimit > 0 && b.monthlyUsed >= b.monthlyLimit
	if !overDaily && !overMonthly {
		return nil
	}

	if b.action == BudgetActionReject {
		return fmt.Errorf("embedding token budget exhausted: %w", domain.ErrRateLimited)
	}

	b.logger.Warn("Embedding token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record adds consumed tokens to both windows. The store write happens after
// the lock is released and never blocks or fails the caller.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollWindows()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	store := b.store
	now := time.Now().UTC()
	dayKey := b.dayKey(now)
	monthKey := b.monthKey(now)
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dayKey, tokens); err != nil {
		b.logger.Warn("Could not persist daily spend", zap.String("key", dayKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthKey, tokens); err != nil {
		b.logger.Warn("Could not persist monthly spend", zap.String("key", monthKey), zap.Error(err))
	}
}

// RemainingDaily returns tokens left today, or -1 when uncapped.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollWindows()
	if b.dailyLimit == 0 {
		return -1
	}
	return clampNonNegative(b.dailyLimit - b.dailyUsed)
}

// RemainingMonthly returns tokens left this month, or -1 when uncapped.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollWindows()
	if b.monthlyLimit == 0 {
		return -1
	}
	return clampNonNegative(b.monthlyLimit - b.monthlyUsed)
}

// DailyLimit returns the daily token cap.
func (b *BudgetTracker) DailyLimit() int64 { return b.dailyLimit }

// MonthlyLimit returns the monthly token cap.
func (b *BudgetTracker) MonthlyLimit() int64 { return b.monthlyLimit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.dailyUsed
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollWindows()
	return b.monthlyUsed
}

// rollWindows zeroes a counter when its window has passed. Callers hold mu.
func (b *BudgetTracker) rollWindows() {
	now := time.Now().UTC()
	if today := dayStart(now); today.After(b.currentDay) {
		b.dailyUsed = 0
		b.currentDay = today
	}
	if month := monthStart(now); month.After(b.currentMonth) {
		b.monthlyUsed = 0
		b.currentMonth = month
	}
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
