package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/metrics"
	"github.com/Dhoini/fitness-billing/pkg/logger"
)

func activeSubscription() *domain.Subscription {
	sub := pendingSubscription()
	start := testNow.Add(-24 * time.Hour)
	end := start.Add(30 * 24 * time.Hour)
	sub.Status = domain.SubscriptionStatusActive
	sub.CycleStart = &start
	sub.CycleEnd = &end
	return sub
}

func newTestCancellation(repo *memoryRepo, gw *fakeGateway, pub EventPublisher) *cancellationService {
	svc := NewCancellationService(repo, gw, pub, metrics.Nop{}, logger.NewNop()).(*cancellationService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCancel_ActiveWithProviderReference(t *testing.T) {
	repo := newMemoryRepo(activeSubscription())
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	svc := newTestCancellation(repo, gw, pub)

	sub, err := svc.Cancel(context.Background(), testUserID, testSubID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, sub.Status)

	assert.Equal(t, []string{testLinkID}, gw.cancelled)

	stored := repo.snapshot(testSubID)
	assert.Equal(t, domain.SubscriptionStatusCancelled, stored.Status)
	assert.False(t, stored.AutoRenewalEnabled)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, testNow, *stored.CancelledAt)
	assert.Equal(t, testNow, stored.UpdatedAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.SubscriptionEventCancelled, pub.events[0].Type)
}

func TestCancel_WithoutProviderReferenceSkipsGateway(t *testing.T) {
	sub := activeSubscription()
	sub.ProviderReference = ""
	repo := newMemoryRepo(sub)
	gw := &fakeGateway{}
	svc := newTestCancellation(repo, gw, nil)

	_, err := svc.Cancel(context.Background(), testUserID, testSubID)
	require.NoError(t, err)
	assert.Empty(t, gw.cancelled)
	assert.Equal(t, domain.SubscriptionStatusCancelled, repo.snapshot(testSubID).Status)
}

func TestCancel_Rejections(t *testing.T) {
	otherUser := "9f8e7d6c-5b4a-4392-8a1b-0c9d8e7f6a5b"

	tests := []struct {
		name    string
		sub     func() *domain.Subscription
		userID  string
		subID   string
		wantErr error
	}{
		{"no identity", activeSubscription, "", testSubID, domain.ErrUnauthenticated},
		{"missing id", activeSubscription, testUserID, "", domain.ErrMissingInput},
		{"malformed id", activeSubscription, testUserID, "not-a-uuid", domain.ErrSubscriptionNotFound},
		{"owned by another user", activeSubscription, otherUser, testSubID, domain.ErrSubscriptionNotFound},
		{"pending", pendingSubscription, testUserID, testSubID, domain.ErrInvalidState},
		{"already cancelled", func() *domain.Subscription {
			s := activeSubscription()
			s.Status = domain.SubscriptionStatusCancelled
			return s
		}, testUserID, testSubID, domain.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.sub()
			repo := newMemoryRepo(original)
			gw := &fakeGateway{}
			svc := newTestCancellation(repo, gw, nil)

			before := repo.snapshot(testSubID)
			_, err := svc.Cancel(context.Background(), tt.userID, tt.subID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, gw.cancelled)
			assert.Zero(t, repo.mutations)
			assert.Equal(t, before, repo.snapshot(testSubID))
		})
	}
}

func TestCancel_GatewayFailureLeavesRecordActive(t *testing.T) {
	repo := newMemoryRepo(activeSubscription())
	gw := &fakeGateway{cancelErr: assert.AnError}
	svc := newTestCancellation(repo, gw, nil)

	_, err := svc.Cancel(context.Background(), testUserID, testSubID)
	assert.ErrorIs(t, err, domain.ErrGatewayError)
	assert.Len(t, gw.cancelled, 1)
	assert.Zero(t, repo.mutations)
	assert.Equal(t, domain.SubscriptionStatusActive, repo.snapshot(testSubID).Status)
}

func TestCancel_LocalUpdateFailureAfterGateway(t *testing.T) {
	repo := newMemoryRepo(activeSubscription())
	repo.cancelErr = assert.AnError
	gw := &fakeGateway{}
	svc := newTestCancellation(repo, gw, nil)

	_, err := svc.Cancel(context.Background(), testUserID, testSubID)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.Len(t, gw.cancelled, 1)
}

func TestStatusService_Current(t *testing.T) {
	repo := newMemoryRepo(activeSubscription())
	svc := NewStatusService(repo, logger.NewNop())

	sub, err := svc.Current(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, testSubID, sub.ID)
	assert.True(t, sub.ActiveAt(testNow))

	_, err = svc.Current(context.Background(), "3c2b1a09-8f7e-4d6c-b5a4-93827160f5e4")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	_, err = svc.Current(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCancel_ClientDisconnectDuringGatewayCallStillCancelsRecord(t *testing.T) {
	repo := newMemoryRepo(activeSubscription())
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := &fakeGateway{during: cancel}
	svc := newTestCancellation(repo, gw, pub)

	sub, err := svc.Cancel(ctx, testUserID, testSubID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, sub.Status)
	assert.Equal(t, []string{testLinkID}, gw.cancelled)

	stored := repo.snapshot(testSubID)
	assert.Equal(t, domain.SubscriptionStatusCancelled, stored.Status)
	assert.False(t, stored.AutoRenewalEnabled)
	require.Len(t, pub.events, 1)
}
