package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentTOTPPath(t *testing.T) {
	ctx := context.Background()
	e := NewEnrollment()
	assert.Equal(t, PhaseIntro, e.Phase)

	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectTOTP(ctx, "FAC-1", "SECRET", "otpauth://totp/x"))
	assert.Equal(t, PhaseQRDisplay, e.Phase)
	assert.Equal(t, StrategyTOTP, e.Strategy)
	assert.Equal(t, "SECRET", e.Secret)

	require.NoError(t, e.Proceed(ctx))
	assert.Equal(t, PhaseVerify, e.Phase)

	require.NoError(t, e.Verified(ctx))
	assert.Equal(t, PhaseComplete, e.Phase)
	// 完成后敏感材料清空
	assert.Empty(t, e.Secret)
	assert.Empty(t, e.QRPayload)
}

func TestEnrollmentPhonePath(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	e := NewEnrollment()

	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectPhone(ctx, "+15550100"))
	assert.Equal(t, PhasePhoneEntry, e.Phase)

	require.NoError(t, e.Challenged(ctx, "FAC-2", now))
	assert.Equal(t, PhaseVerify, e.Phase)
	assert.Equal(t, "FAC-2", e.FactorID)
	assert.False(t, e.CanResend(now))
	assert.True(t, e.CanResend(now.Add(31*time.Second)))

	require.NoError(t, e.Verified(ctx))
	assert.Equal(t, PhaseComplete, e.Phase)
}

func TestEnrollmentInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	e := NewEnrollment()

	// intro 阶段不能直接校验或选策略
	assert.Error(t, e.Verified(ctx))
	assert.Error(t, e.SelectTOTP(ctx, "FAC-1", "s", "q"))
	assert.Error(t, e.Proceed(ctx))
	assert.Equal(t, PhaseIntro, e.Phase)
}

func TestEnrollmentCancelClearsMaterial(t *testing.T) {
	ctx := context.Background()
	e := NewEnrollment()
	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectTOTP(ctx, "FAC-1", "SECRET", "otpauth://totp/x"))

	require.NoError(t, e.Cancel(ctx))
	assert.Equal(t, PhaseMethodSelect, e.Phase)
	assert.Empty(t, e.Secret)
	assert.Empty(t, e.FactorID)
	assert.Equal(t, StrategyUnset, e.Strategy)
}

func TestEnrollmentSwitchFromVerify(t *testing.T) {
	ctx := context.Background()
	e := NewEnrollment()
	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectPhone(ctx, "+15550100"))
	require.NoError(t, e.Challenged(ctx, "FAC-2", time.Now()))

	require.NoError(t, e.Switch(ctx))
	assert.Equal(t, PhaseMethodSelect, e.Phase)
	assert.Empty(t, e.PhoneNumber)
}

func TestEnrollmentFallback(t *testing.T) {
	ctx := context.Background()
	e := NewEnrollment()
	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectPhone(ctx, "+15550100"))

	require.NoError(t, e.Fallback(ctx))
	assert.Equal(t, PhaseMethodSelect, e.Phase)
	assert.Equal(t, StrategyUnset, e.Strategy)
}

func TestEnrollmentSkipFromAnyPhase(t *testing.T) {
	ctx := context.Background()

	e := NewEnrollment()
	require.NoError(t, e.Skip(ctx))
	assert.Equal(t, PhaseComplete, e.Phase)

	e = NewEnrollment()
	require.NoError(t, e.Begin(ctx))
	require.NoError(t, e.SelectTOTP(ctx, "FAC-1", "s", "q"))
	require.NoError(t, e.Skip(ctx))
	assert.Equal(t, PhaseComplete, e.Phase)
	assert.Empty(t, e.Secret)

	// 已完成后再跳过是幂等的
	require.NoError(t, e.Skip(ctx))
}
