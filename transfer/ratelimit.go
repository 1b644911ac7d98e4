package transfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxBurst is the largest single read a throttled download makes
const maxBurst = 1 << 20

// NewBWLimiter creates a limiter for --bwlimit. The bucket holds at most
// one second of traffic and never more than maxBurst.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := int64(maxBurst)
	if bytesPerSec < burst {
		burst = bytesPerSec
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(burst))
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

// throttle returns r unchanged when limiter is nil. Otherwise every read
// is shortened to the bucket size and returns only once its bytes are
// paid for, or ctx is done.
func throttle(ctx context.Context, r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return readerFunc(func(p []byte) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if b := limiter.Burst(); b > 0 && len(p) > b {
			p = p[:b]
		}

		n, err := r.Read(p)
		if n == 0 {
			return n, err
		}
		if waitErr := limiter.WaitN(ctx, n); waitErr != nil {
			return n, waitErr
		}
		return n, err
	})
}
