package models

import (
	"fmt"
	"time"
)

// OptionRight identifies the side of an options contract.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// ContractMultiplier is the standard US equity option multiplier.
const ContractMultiplier = 100.0

// ContractKey identifies one options instrument for a symbol.
type ContractKey struct {
	Symbol     string      `json:"symbol"`
	Strike     float64     `json:"strike"`
	Expiration string      `json:"expiration"` // YYYY-MM-DD
	Right      OptionRight `json:"right"`
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%s_%.2f_%s_%s", k.Symbol, k.Strike, k.Right, k.Expiration)
}

// MarketSnapshot is one per-contract observation tick. Immutable once built.
type MarketSnapshot struct {
	Symbol            string      `json:"symbol"`
	Contract          ContractKey `json:"contract"`
	UnderlyingPrice   float64     `json:"underlying_price"`
	Bid               float64     `json:"bid"`
	Ask               float64     `json:"ask"`
	Last              float64     `json:"last"`
	Volume            int64       `json:"volume"` // cumulative for the session
	OpenInterest      int64       `json:"open_interest"`
	ImpliedVolatility float64     `json:"implied_volatility"` // percentage points
	Delta             float64     `json:"delta"`              // [-1, 1]
	Timestamp         time.Time   `json:"timestamp"`
}

// Mid returns the bid/ask midpoint, falling back to last when one side is missing.
func (s *MarketSnapshot) Mid() float64 {
	if s.Bid > 0 && s.Ask > 0 {
		return (s.Bid + s.Ask) / 2
	}
	return s.Last
}

// SpreadPct returns (ask - bid) / mid as a percentage.
func (s *MarketSnapshot) SpreadPct() float64 {
	mid := s.Mid()
	if mid <= 0 {
		return 0
	}
	return (s.Ask - s.Bid) / mid * 100
}

// Premium is the dollar value of the session's traded volume at the last price.
func (s *MarketSnapshot) Premium() float64 {
	return s.Last * float64(s.Volume) * ContractMultiplier
}

// Validate enforces the snapshot invariants. Violations wrap ErrMalformedSnapshot.
func (s *MarketSnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrMalformedSnapshot)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrMalformedSnapshot)
	}
	if s.Bid > s.Ask && s.Ask > 0 {
		return fmt.Errorf("%w: bid %.2f > ask %.2f", ErrMalformedSnapshot, s.Bid, s.Ask)
	}
	if s.Volume < 0 {
		return fmt.Errorf("%w: negative volume %d", ErrMalformedSnapshot, s.Volume)
	}
	if s.Delta < -1 || s.Delta > 1 {
		return fmt.Errorf("%w: delta %.3f out of range", ErrMalformedSnapshot, s.Delta)
	}
	return nil
}

// TradeSide marks which side of the book an execution hit.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// OptionTrade is a venue-tagged execution. Only sources that supply
// trade-level data produce these; sweep/block/dark-pool detection
// stays silent without them.
type OptionTrade struct {
	Contract        ContractKey `json:"contract"`
	Price           float64     `json:"price"`
	Size            int64       `json:"size"`
	Side            TradeSide   `json:"side"`
	Venue           string      `json:"venue"`
	OffExchange     bool        `json:"off_exchange"`
	UnderlyingPrice float64     `json:"underlying_price"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Premium returns price x size x contract multiplier.
func (t *OptionTrade) Premium() float64 {
	return t.Price * float64(t.Size) * ContractMultiplier
}

// PricePoint is one observation in a symbol's rolling price window.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
