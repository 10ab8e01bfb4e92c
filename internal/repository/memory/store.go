// Package memory provides in-process repositories used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chamatrack/chama-service/internal/domain"
	"github.com/chamatrack/chama-service/internal/repository"
)

// Store holds members, payments and settings behind one lock.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	members  map[string]domain.Member
	payments []domain.Payment
	settings *domain.Settings
	seq      int64
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		members: make(map[string]domain.Member),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Members returns the member repository view.
func (s *Store) Members() repository.MemberRepository { return memberRepo{s} }

// Payments returns the ledger view.
func (s *Store) Payments() repository.PaymentRepository { return paymentRepo{s} }

// Settings returns the settings view.
func (s *Store) Settings() repository.SettingsRepository { return settingsRepo{s} }

// WithinTx serializes units of work and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	members := make(map[string]domain.Member, len(s.members))
	for id, m := range s.members {
		members[id] = m
	}
	payments := append([]domain.Payment(nil), s.payments...)
	settings := s.settings
	seq := s.seq
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.members, s.payments, s.settings, s.seq = members, payments, settings, seq
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) totalFor(memberID string) int64 {
	var cents int64
	for _, p := range s.payments {
		if p.MemberID == memberID {
			cents += domain.AmountToCents(p.Amount)
		}
	}
	return cents
}

func (s *Store) withTotal(m domain.Member) domain.Member {
	m.TotalPaid = domain.CentsToAmount(s.totalFor(m.ID))
	return m
}

type memberRepo struct{ s *Store }

func (r memberRepo) Create(_ context.Context, member *domain.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.members {
		if existing.Phone == member.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	now := r.s.now()
	member.ID = uuid.NewString()
	member.CreatedAt = now
	member.UpdatedAt = now
	r.s.members[member.ID] = *member
	return nil
}

func (r memberRepo) GetByID(_ context.Context, id string) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = r.s.withTotal(m)
	return &m, nil
}

func (r memberRepo) GetByPhone(_ context.Context, phone string) (*domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.members {
		if m.Phone == phone {
			m = r.s.withTotal(m)
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memberRepo) List(_ context.Context) ([]domain.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Member, 0, len(r.s.members))
	for _, m := range r.s.members {
		out = append(out, r.s.withTotal(m))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r memberRepo) Search(_ context.Context, term string) ([]domain.Member, error) {
	needle := strings.ToLower(strings.TrimSpace(term))

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Member{}
	for _, m := range r.s.members {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			out = append(out, r.s.withTotal(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a == b {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return a < b
	})
	return out, nil
}

func (r memberRepo) SetPaid(_ context.Context, id string, paid bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.HasPaid = paid
	m.UpdatedAt = r.s.now()
	r.s.members[id] = m
	return nil
}

func (r memberRepo) ResetPaid(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	now := r.s.now()
	for id, m := range r.s.members {
		if m.HasPaid {
			m.HasPaid = false
			m.UpdatedAt = now
			r.s.members[id] = m
			changed++
		}
	}
	return changed, nil
}

func (r memberRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.s.payments {
		if p.MemberID == id {
			return repository.ErrHasPayments
		}
	}
	delete(r.s.members, id)
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[payment.MemberID]; !ok {
		return repository.ErrNotFound
	}
	r.s.seq++
	payment.ID = uuid.NewString()
	payment.Seq = r.s.seq
	if payment.OccurredAt.IsZero() {
		payment.OccurredAt = r.s.now()
	}
	payment.Amount = domain.CentsToAmount(domain.AmountToCents(payment.Amount))
	r.s.payments = append(r.s.payments, *payment)
	return nil
}

func (r paymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Payment{}
	for _, p := range r.s.payments {
		if filter.MemberID != nil && p.MemberID != *filter.MemberID {
			continue
		}
		if filter.From != nil && p.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.OccurredAt.After(*filter.To) {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r paymentRepo) CountByMember(_ context.Context, memberID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, p := range r.s.payments {
		if p.MemberID == memberID {
			count++
		}
	}
	return count, nil
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(_ context.Context) (*domain.Settings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.settings == nil {
		return nil, repository.ErrNotFound
	}
	settings := *r.s.settings
	return &settings, nil
}

func (r settingsRepo) Upsert(_ context.Context, settings *domain.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	settings.UpdatedAt = r.s.now()
	stored := *settings
	r.s.settings = &stored
	return nil
}
