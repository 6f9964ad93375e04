package memory

import (
	"context"
	"sync"
	"time"

	"solana-kalshi-copier/internal/domain"
	"solana-kalshi-copier/internal/storage"
)

// SignatureLog is an in-memory implementation of storage.SignatureLog.
// Entries expire after ttl; history keeps at most historyLen events per wallet.
type SignatureLog struct {
	mu         sync.Mutex
	signatures map[string]map[string]time.Time // wallet -> signature -> expiry
	history    map[string]*walletHistory
	ttl        time.Duration
	historyLen int
	now        func() time.Time
}

type walletHistory struct {
	events  []*domain.TradeEvent // newest first
	expires time.Time
}

// NewSignatureLog creates a new in-memory signature log.
func NewSignatureLog(ttl time.Duration, historyLen int) *SignatureLog {
	if historyLen <= 0 {
		historyLen = 50
	}
	return &SignatureLog{
		signatures: make(map[string]map[string]time.Time),
		history:    make(map[string]*walletHistory),
		ttl:        ttl,
		historyLen: historyLen,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *SignatureLog) WithClock(now func() time.Time) *SignatureLog {
	s.now = now
	return s
}

var _ storage.SignatureLog = (*SignatureLog)(nil)

// Contains reports whether the signature was recorded and has not expired.
func (s *SignatureLog) Contains(_ context.Context, wallet, signature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.signatures[wallet][signature]
	if !ok {
		return false, nil
	}
	if s.ttl > 0 && !s.now().Before(expiry) {
		delete(s.signatures[wallet], signature)
		return false, nil
	}
	return true, nil
}

// Record marks the signature as handled.
func (s *SignatureLog) Record(_ context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sigs, ok := s.signatures[wallet]
	if !ok {
		sigs = make(map[string]time.Time)
		s.signatures[wallet] = sigs
	}
	sigs[signature] = s.now().Add(s.ttl)
	return nil
}

// AppendHistory pushes an event to the front of the wallet history and trims it.
func (s *SignatureLog) AppendHistory(_ context.Context, e *domain.TradeEvent) error {
	if e == nil || e.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.liveHistory(e.WalletAddress)
	if h == nil {
		h = &walletHistory{}
		s.history[e.WalletAddress] = h
	}

	copy := *e
	h.events = append([]*domain.TradeEvent{&copy}, h.events...)
	if len(h.events) > s.historyLen {
		h.events = h.events[:s.historyLen]
	}
	h.expires = s.now().Add(s.ttl)
	return nil
}

// History returns up to limit most recent events.
func (s *SignatureLog) History(_ context.Context, wallet string, limit int) ([]*domain.TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.liveHistory(wallet)
	if h == nil {
		return []*domain.TradeEvent{}, nil
	}

	n := len(h.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.TradeEvent, n)
	for i := 0; i < n; i++ {
		copy := *h.events[i]
		out[i] = &copy
	}
	return out, nil
}

// liveHistory returns the wallet history, dropping it when expired. Caller holds mu.
func (s *SignatureLog) liveHistory(wallet string) *walletHistory {
	h, ok := s.history[wallet]
	if !ok {
		return nil
	}
	if s.ttl > 0 && !s.now().Before(h.expires) {
		delete(s.history, wallet)
		return nil
	}
	return h
}
