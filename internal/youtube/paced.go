package youtube

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type paced struct {
	next    Searcher
	limiter *rate.Limiter
}

// NewPaced spaces upstream searches at least interval apart. A non-positive
// interval returns next unchanged.
func NewPaced(next Searcher, interval time.Duration) Searcher {
	if interval <= 0 {
		return next
	}
	return &paced{next: next, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *paced) Search(ctx context.Context, keyword string, limit int) Result {
	if err := p.limiter.Wait(ctx); err != nil {
		return Failed(keyword, "", err)
	}
	return p.next.Search(ctx, keyword, limit)
}
