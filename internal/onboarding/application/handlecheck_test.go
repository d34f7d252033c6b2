package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

func TestHandleCheckerStatuses(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	checker := NewHandleChecker(profiles)

	taken := domain.NewProfile("USR-1")
	taken.Handle = "taken_handle"
	require.NoError(t, profiles.Save(ctx, taken))

	status, err := checker.Check(ctx, "free_handle", "")
	require.NoError(t, err)
	assert.Equal(t, HandleAvailable, status)

	status, err = checker.Check(ctx, "taken_handle", "")
	require.NoError(t, err)
	assert.Equal(t, HandleTaken, status)

	// 大小写不敏感
	status, err = checker.Check(ctx, "Taken_Handle", "")
	require.NoError(t, err)
	assert.Equal(t, HandleTaken, status)

	// 自排除：重存自己的 handle 视为可用
	status, err = checker.Check(ctx, "taken_handle", taken.ID)
	require.NoError(t, err)
	assert.Equal(t, HandleAvailable, status)

	status, err = checker.Check(ctx, "x", "")
	assert.Equal(t, HandleUnknown, status)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestDebouncerLastCallWins(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	debouncer := NewDebouncer(NewHandleChecker(profiles), 20*time.Millisecond)

	var mu sync.Mutex
	var results []ProbeResult
	callback := func(r ProbeResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}

	// 连续击键：只有最后一次在静默窗口后真正探测
	debouncer.Probe(ctx, "han", "", callback)
	debouncer.Probe(ctx, "hand", "", callback)
	debouncer.Probe(ctx, "handle_one", "", callback)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.Equal(t, "handle_one", results[0].Handle)
	assert.Equal(t, HandleAvailable, results[0].Status)
}

func TestDebouncerQuiescenceAllowsSequentialProbes(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	debouncer := NewDebouncer(NewHandleChecker(profiles), 10*time.Millisecond)

	var mu sync.Mutex
	var results []ProbeResult
	callback := func(r ProbeResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}

	debouncer.Probe(ctx, "first_handle", "", callback)
	time.Sleep(50 * time.Millisecond)
	debouncer.Probe(ctx, "second_handle", "", callback)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	assert.Equal(t, "first_handle", results[0].Handle)
	assert.Equal(t, "second_handle", results[1].Handle)
}
