package dispatch

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// limiter is a global token bucket in front of every handler.
type limiter struct {
	bucket *rate.Limiter
	now    func() time.Time
}

func newLimiter(rps float64, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		bucket: rate.NewLimiter(rate.Limit(rps), burst),
		now:    time.Now,
	}
}

// allow takes a token or returns a *util.RateLimitError telling the client
// when the next token is due.
func (l *limiter) allow() error {
	now := l.now()
	res := l.bucket.ReserveN(now, 1)
	if !res.OK() {
		return util.NewRateLimitError(float64(l.bucket.Limit()), time.Second)
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return util.NewRateLimitError(float64(l.bucket.Limit()), delay)
	}
	return nil
}
