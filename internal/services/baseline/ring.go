package baseline

import (
	"sync"
	"time"

	"FlowTrack/internal/domain/models"
)

// ring is a fixed-capacity buffer with an incremental sum, so the trailing
// mean stays O(1) per push.
type ring struct {
	buf  []float64
	head int
	n    int
	sum  float64
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n == len(r.buf) {
		r.sum -= r.buf[r.head]
	} else {
		r.n++
	}
	r.buf[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

func (r *ring) len() int { return r.n }

// priceWindow keeps (timestamp, price) points inside a wall-clock span.
type priceWindow struct {
	mu   sync.Mutex
	span time.Duration
	pts  []models.PricePoint
}

func newPriceWindow(span time.Duration) *priceWindow {
	return &priceWindow{span: span}
}

func (w *priceWindow) add(ts time.Time, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pts = append(w.pts, models.PricePoint{Timestamp: ts, Price: price})
	cutoff := ts.Add(-w.span)
	i := 0
	for i < len(w.pts) && w.pts[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.pts = append(w.pts[:0], w.pts[i:]...)
	}
}

func (w *priceWindow) points(notBefore time.Time) []models.PricePoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.PricePoint, 0, len(w.pts))
	for _, p := range w.pts {
		if !p.Timestamp.Before(notBefore) {
			out = append(out, p)
		}
	}
	return out
}
