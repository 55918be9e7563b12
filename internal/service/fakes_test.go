package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Dhoini/fitness-billing/internal/domain"
	"github.com/Dhoini/fitness-billing/internal/repository"
)

// memoryRepo хранилище в памяти с условными обновлениями как в Postgres
type memoryRepo struct {
	mu           sync.Mutex
	subs         map[string]*domain.Subscription
	transactions []domain.PaymentTransaction
	mutations    int

	// beforeActivate вызывается внутри Activate до проверки статуса
	beforeActivate func(sub *domain.Subscription)
	cancelErr      error
}

func newMemoryRepo(subs ...*domain.Subscription) *memoryRepo {
	r := &memoryRepo{subs: map[string]*domain.Subscription{}}
	for _, s := range subs {
		r.subs[s.ID] = s
	}
	return r
}

func (r *memoryRepo) snapshot(id string) domain.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.subs[id]
}

func (r *memoryRepo) GetByProviderReference(_ context.Context, reference string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ProviderReference == reference {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRepo) GetByIDForUser(_ context.Context, subscriptionID, userID string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subscriptionID]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) GetCurrentByUser(_ context.Context, userID string) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Subscription
	for _, s := range r.subs {
		if s.UserID == userID && (latest == nil || s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memoryRepo) Activate(ctx context.Context, a domain.Activation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[a.SubscriptionID]
	if !ok {
		return repository.ErrStatusConflict
	}
	if r.beforeActivate != nil {
		r.beforeActivate(s)
	}
	if s.Status != domain.SubscriptionStatusPending {
		return repository.ErrStatusConflict
	}
	start, end := a.Cycle.Start, a.Cycle.End
	s.Status = domain.SubscriptionStatusActive
	s.CycleStart = &start
	s.CycleEnd = &end
	s.UpdatedAt = a.At
	r.transactions = append(r.transactions, a.Transaction)
	r.mutations++
	return nil
}

func (r *memoryRepo) Cancel(ctx context.Context, c domain.Cancellation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelErr != nil {
		return r.cancelErr
	}
	s, ok := r.subs[c.SubscriptionID]
	if !ok || s.UserID != c.UserID || s.Status != domain.SubscriptionStatusActive {
		return repository.ErrStatusConflict
	}
	at := c.At
	s.Status = domain.SubscriptionStatusCancelled
	s.CancelledAt = &at
	s.AutoRenewalEnabled = false
	s.UpdatedAt = at
	r.mutations++
	return nil
}

// fakeGateway отвечает заранее заданными значениями и считает вызовы
type fakeGateway struct {
	link       *domain.PaymentLink
	fetchErr   error
	cancelErr  error
	fetchCalls int
	cancelled  []string

	// during вызывается посреди запроса к провайдеру
	during func()
}

func (g *fakeGateway) FetchPaymentLink(ctx context.Context, linkID string) (*domain.PaymentLink, error) {
	g.fetchCalls++
	if g.during != nil {
		g.during()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	link := *g.link
	link.ID = linkID
	return &link, nil
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	g.cancelled = append(g.cancelled, providerSubscriptionID)
	if g.during != nil {
		g.during()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.cancelErr
}

type recordingPublisher struct {
	events []domain.SubscriptionEvent
	err    error
}

func (p *recordingPublisher) PublishSubscriptionEvent(_ context.Context, event domain.SubscriptionEvent) error {
	p.events = append(p.events, event)
	return p.err
}

var errBrokerDown = errors.New("broker down")
