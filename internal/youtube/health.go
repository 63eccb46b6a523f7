package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/trend-wordcloud/pkg/resilience"
)

type breakerHolder interface {
	Breaker() *resilience.CircuitBreaker
}

type unwrapper interface {
	Unwrap() Searcher
}

func (c *APIClient) Breaker() *resilience.CircuitBreaker    { return c.breaker }
func (c *ScrapeClient) Breaker() *resilience.CircuitBreaker { return c.breaker }

func (p *paced) Unwrap() Searcher           { return p.next }
func (c *CachedSearcher) Unwrap() Searcher { return c.next }

// BreakerOf finds the circuit breaker of the upstream client beneath the
// pacing and cache layers, or nil.
func BreakerOf(s Searcher) *resilience.CircuitBreaker {
	for s != nil {
		if b, ok := s.(breakerHolder); ok {
			return b.Breaker()
		}
		u, ok := s.(unwrapper)
		if !ok {
			return nil
		}
		s = u.Unwrap()
	}
	return nil
}

// HealthCheck reports the upstream as degraded while its breaker is not
// closed. A broken upstream never takes the server down: the last cloud
// stays servable.
func HealthCheck(s Searcher) health.Check {
	cb := BreakerOf(s)
	return func(context.Context) health.ComponentHealth {
		if cb == nil {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		st := cb.Status()
		switch st.State {
		case resilience.StateOpen:
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("%s circuit open after %d failures, retry in %s", st.Name, st.ConsecutiveFailures, st.RetryIn.Round(time.Second)),
			}
		case resilience.StateHalfOpen:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: st.Name + " circuit half-open"}
		default:
			return health.ComponentHealth{Status: health.StatusUp}
		}
	}
}
