package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// chunkSize bounds a single limiter reservation and therefore the burst a
// client can receive without waiting.
const chunkSize = 32 * 1024

// BandwidthManager caps the bytes per second written by the static
// delegate. The cap is split evenly between client IPs with a transfer in
// flight; parallel requests from one IP (a project page fetching its
// assets) draw from that IP's single share.
type BandwidthManager struct {
	limit float64 // bytes/sec, 0 disables throttling
	log   *zap.Logger

	mu    sync.Mutex
	peers map[string]*peer
}

type peer struct {
	lim    *rate.Limiter
	active int
}

// NewBandwidthManager returns a manager for a total of bytesPerSec. Zero
// means unlimited.
func NewBandwidthManager(bytesPerSec float64, log *zap.Logger) *BandwidthManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &BandwidthManager{
		limit: bytesPerSec,
		log:   log,
		peers: make(map[string]*peer),
	}
}

// Peers returns the number of client IPs with a transfer in flight.
func (bm *BandwidthManager) Peers() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return len(bm.peers)
}

func (bm *BandwidthManager) acquire(ip string) *rate.Limiter {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	p := bm.peers[ip]
	if p == nil {
		p = &peer{lim: rate.NewLimiter(rate.Limit(bm.limit), chunkSize)}
		bm.peers[ip] = p
	}
	p.active++
	bm.redistribute()
	return p.lim
}

func (bm *BandwidthManager) release(ip string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	p := bm.peers[ip]
	if p == nil {
		return
	}
	if p.active--; p.active <= 0 {
		delete(bm.peers, ip)
	}
	bm.redistribute()
}

// redistribute sets every peer's limiter to an equal share. bm.mu must be
// held.
func (bm *BandwidthManager) redistribute() {
	if len(bm.peers) == 0 {
		return
	}
	share := bm.limit / float64(len(bm.peers))
	for _, p := range bm.peers {
		p.lim.SetLimit(rate.Limit(share))
	}
	bm.log.Debug("bandwidth shares", zap.Int("peers", len(bm.peers)), zap.String("share", FormatBits(share)))
}

// Wrap throttles the response bodies written by h. With no cap, h itself is
// returned.
func (bm *BandwidthManager) Wrap(h http.Handler) http.Handler {
	if bm.limit <= 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		lim := bm.acquire(ip)
		defer bm.release(ip)
		h.ServeHTTP(&throttledWriter{ResponseWriter: w, ctx: r.Context(), lim: lim}, r)
	})
}

// FormatBits renders a bytes-per-second rate in bits per second, the unit
// the -bandwidth flag is given in.
func FormatBits(bytesPerSec float64) string {
	bits := bytesPerSec * 8
	for _, u := range []struct {
		scale float64
		name  string
	}{{1e9, "Gbps"}, {1e6, "Mbps"}, {1e3, "Kbps"}} {
		if bits >= u.scale {
			return fmt.Sprintf("%.2f %s", bits/u.scale, u.name)
		}
	}
	return fmt.Sprintf("%.0f bps", bits)
}

// throttledWriter waits on its limiter before each chunk of body bytes.
type throttledWriter struct {
	http.ResponseWriter
	ctx context.Context
	lim *rate.Limiter
}

func (tw *throttledWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		n := min(len(p), chunkSize)
		if err := tw.lim.WaitN(tw.ctx, n); err != nil {
			return written, err
		}
		m, err := tw.ResponseWriter.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// ReadFrom keeps io.Copy inside http.FileServer from bypassing Write via
// the underlying connection's ReadFrom.
func (tw *throttledWriter) ReadFrom(src io.Reader) (int64, error) {
	return io.CopyBuffer(struct{ io.Writer }{tw}, src, make([]byte, chunkSize))
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (tw *throttledWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
