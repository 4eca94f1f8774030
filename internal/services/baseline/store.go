package baseline

import (
	"fmt"
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
)

// View is a read-only copy of a contract's baseline, as it stood before
// the snapshot being processed. Detectors receive views so they stay pure.
type View struct {
	AvgVolume        float64
	AvgPremium       float64
	PrevOpenInterest int64
	SessionOpenIV    float64
	LastTimestamp    time.Time
	Sessions         int
}

// Store owns all rolling per-contract statistics. Updates for the same
// contract are strictly ordered by snapshot timestamp; different contracts
// never block each other beyond the map lookup.
type Store struct {
	mu        sync.RWMutex
	contracts map[string]*contractState
	prices    map[string]*priceWindow

	sessions  int           // trailing session window for volume/premium means
	priceSpan time.Duration // wall-clock window for underlying price history
}

type contractState struct {
	mu sync.Mutex

	last       time.Time
	sessionDay string

	sessionVolume  int64
	sessionPremium float64
	openIV         float64
	prevOI         int64

	volumes  *ring
	premiums *ring
}

// New creates a Store keeping the given number of trailing sessions and
// the given wall-clock span of underlying prices per symbol.
func New(sessions int, priceSpan time.Duration) *Store {
	if sessions <= 0 {
		sessions = 20
	}
	if priceSpan <= 0 {
		priceSpan = 5 * time.Minute
	}
	return &Store{
		contracts: make(map[string]*contractState),
		prices:    make(map[string]*priceWindow),
		sessions:  sessions,
		priceSpan: priceSpan,
	}
}

// Update folds one snapshot into the baseline for its contract and returns
// the view that was current before the fold. Out-of-order or duplicate
// snapshots are rejected with models.ErrOutOfOrder and leave the baseline
// untouched.
func (s *Store) Update(snap *models.MarketSnapshot) (View, error) {
	key := snap.Contract.String()
	st := s.state(key)

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.last.IsZero() && !snap.Timestamp.After(st.last) {
		return View{}, fmt.Errorf("%w: %s at %s (last %s)",
			models.ErrOutOfOrder, key, snap.Timestamp.Format(time.RFC3339Nano), st.last.Format(time.RFC3339Nano))
	}

	day := snap.Timestamp.Format("2006-01-02")
	if st.sessionDay != "" && st.sessionDay != day {
		// session roll: fold the finished session into the trailing window
		st.volumes.push(float64(st.sessionVolume))
		st.premiums.push(st.sessionPremium)
		st.sessionVolume = 0
		st.sessionPremium = 0
		st.openIV = 0
	}
	if st.sessionDay != day {
		st.sessionDay = day
	}
	if st.openIV == 0 {
		st.openIV = snap.ImpliedVolatility
	}

	view := View{
		AvgVolume:        st.volumes.mean(),
		AvgPremium:       st.premiums.mean(),
		PrevOpenInterest: st.prevOI,
		SessionOpenIV:    st.openIV,
		LastTimestamp:    st.last,
		Sessions:         st.volumes.len(),
	}

	st.last = snap.Timestamp
	st.sessionVolume = snap.Volume
	st.sessionPremium = snap.Premium()
	st.prevOI = snap.OpenInterest

	s.observePrice(snap.Symbol, snap.Timestamp, snap.UnderlyingPrice)

	return view, nil
}

// Get returns the current view for a contract, if one exists.
func (s *Store) Get(key models.ContractKey) (View, bool) {
	s.mu.RLock()
	st, ok := s.contracts[key.String()]
	s.mu.RUnlock()
	if !ok {
		return View{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return View{
		AvgVolume:        st.volumes.mean(),
		AvgPremium:       st.premiums.mean(),
		PrevOpenInterest: st.prevOI,
		SessionOpenIV:    st.openIV,
		LastTimestamp:    st.last,
		Sessions:         st.volumes.len(),
	}, true
}

// SeedSessionVolumes preloads prior-session volumes for a contract, letting
// volume detectors fire on the first live session.
func (s *Store) SeedSessionVolumes(key models.ContractKey, volumes []int64) {
	st := s.state(key.String())
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, v := range volumes {
		st.volumes.push(float64(v))
	}
}

// PriceHistory returns a copy of the rolling underlying-price window.
func (s *Store) PriceHistory(symbol string) []models.PricePoint {
	s.mu.RLock()
	w, ok := s.prices[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.points(time.Now().Add(-s.priceSpan))
}

func (s *Store) state(key string) *contractState {
	s.mu.RLock()
	st, ok := s.contracts[key]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.contracts[key]; ok {
		return st
	}
	st = &contractState{
		volumes:  newRing(s.sessions),
		premiums: newRing(s.sessions),
	}
	s.contracts[key] = st
	return st
}

func (s *Store) observePrice(symbol string, ts time.Time, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	w, ok := s.prices[symbol]
	if !ok {
		w = newPriceWindow(s.priceSpan)
		s.prices[symbol] = w
	}
	s.mu.Unlock()
	w.add(ts, price)
}
