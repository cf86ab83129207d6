package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

type mockStore struct {
	m     sync.Mutex
	codes map[string]struct{}
	err   error
}

func newMockStore() *mockStore {
	return &mockStore{codes: make(map[string]struct{})}
}

func (s *mockStore) SaveTicket(_ context.Context, t *domain.Ticket) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, taken := s.codes[t.Code]; taken {
		return repository.ErrCodeTaken
	}
	s.codes[t.Code] = struct{}{}
	return nil
}

func TestIssue_PersistsTicketWithGeneratedCode(t *testing.T) {
	store := newMockStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuerWithClock(store, func() time.Time { return now }, randomCode)

	lines := []domain.PurchaseLine{{ProductID: "p1", Quantity: 1}}
	tkt, err := issuer.Issue(context.Background(), "buyer@example.com", lines, decimal.NewFromInt(45))

	require.NoError(t, err)
	assert.NotEmpty(t, tkt.Code)
	assert.Equal(t, now, tkt.PurchasedAt)
	assert.Equal(t, "buyer@example.com", tkt.Purchaser)
	assert.Len(t, store.codes, 1)
}

func TestIssue_RetriesOnCodeCollision(t *testing.T) {
	store := newMockStore()
	store.codes["TKT-AAAA"] = struct{}{}

	codes := []string{"TKT-AAAA", "TKT-BBBB"}
	i := 0
	issuer := NewIssuerWithClock(store, time.Now, func() string {
		code := codes[i]
		i++
		return code
	})

	tkt, err := issuer.Issue(context.Background(), "buyer@example.com", nil, decimal.Zero)

	require.NoError(t, err)
	assert.Equal(t, "TKT-BBBB", tkt.Code)
	assert.Equal(t, 2, i)
}

func TestIssue_ExhaustsAfterRepeatedCollisions(t *testing.T) {
	store := newMockStore()
	store.codes["TKT-SAME"] = struct{}{}
	issuer := NewIssuerWithClock(store, time.Now, func() string { return "TKT-SAME" })

	_, err := issuer.Issue(context.Background(), "buyer@example.com", nil, decimal.Zero)

	assert.ErrorIs(t, err, ErrExhausted)
}

func TestIssue_StoreFailureIsNotRetried(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("disk on fire")
	issuer := NewIssuer(store)

	_, err := issuer.Issue(context.Background(), "buyer@example.com", nil, decimal.Zero)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "failed to persist ticket")
}

func TestIssue_CodesUniqueUnderConcurrency(t *testing.T) {
	store := newMockStore()
	issuer := NewIssuer(store)

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Issue(context.Background(), "buyer@example.com", nil, decimal.Zero)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	// The store accepted every code, so all n were distinct.
	assert.Len(t, store.codes, n)
}

func TestRandomCode_Format(t *testing.T) {
	code := randomCode()
	assert.Regexp(t, `^TKT-[0-9A-F]{20}$`, code)
	assert.NotEqual(t, code, randomCode())
}
