package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/talentmarket/internal/notification/domain"
)

type fakeNotificationRepo struct {
	saved []*domain.AdminNotification
}

func (r *fakeNotificationRepo) Save(ctx context.Context, n *domain.AdminNotification) error {
	for i, existing := range r.saved {
		if existing.NotificationID == n.NotificationID {
			r.saved[i] = n
			return nil
		}
	}
	r.saved = append(r.saved, n)
	return nil
}

func (r *fakeNotificationRepo) GetByProfileID(ctx context.Context, profileID string) ([]*domain.AdminNotification, error) {
	var out []*domain.AdminNotification
	for _, n := range r.saved {
		if n.ProfileID == profileID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeSender struct {
	sent int
	err  error
}

func (s *fakeSender) Send(ctx context.Context, target, subject, content string) error {
	if s.err != nil {
		return s.err
	}
	s.sent++
	return nil
}

func TestNotifyOnboardingCompleted(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sender := &fakeSender{}
	svc := NewNotificationService(repo, sender, "ops@example.com")

	err := svc.NotifyOnboardingCompleted(context.Background(), OnboardingCompletedNotice{
		ProfileID: "TPRO-1", UserID: "USR-1", Handle: "jazz_hands", MFAVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sender.sent)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, domain.NotificationStatusSent, repo.saved[0].Status)
	assert.NotNil(t, repo.saved[0].SentAt)
}

func TestNotifyOnboardingCompletedSendFailureIsRecorded(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sender := &fakeSender{err: assert.AnError}
	svc := NewNotificationService(repo, sender, "ops@example.com")

	err := svc.NotifyOnboardingCompleted(context.Background(), OnboardingCompletedNotice{
		ProfileID: "TPRO-1", UserID: "USR-1", Handle: "jazz_hands",
	})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, domain.NotificationStatusFailed, repo.saved[0].Status)
	assert.NotEmpty(t, repo.saved[0].ErrorMessage)
}
