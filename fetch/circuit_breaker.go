package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// CircuitBreakerFetcher stops sending requests to a host after five
// consecutive failures. Each mirror and the AUR get their own breaker.
type CircuitBreakerFetcher struct {
	getter   Getter
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

var _ Getter = (*CircuitBreakerFetcher)(nil)

func NewCircuitBreakerFetcher(g Getter) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		getter:   g,
		breakers: make(map[string]*circuit.Breaker),
	}
}

func (cbf *CircuitBreakerFetcher) breaker(host string) *circuit.Breaker {
	cbf.mu.RLock()
	b, ok := cbf.breakers[host]
	cbf.mu.RUnlock()
	if ok {
		return b
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()
	if b, ok := cbf.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	cbf.breakers[host] = b
	return b
}

// call runs fn under the breaker of rawURL's host. Not-found answers are
// healthy responses and do not count as failures.
func (cbf *CircuitBreakerFetcher) call(rawURL string, fn func() error) error {
	host := hostOf(rawURL)
	b := cbf.breaker(host)
	if !b.Ready() {
		return fmt.Errorf("circuit open for %s: %w", host, ErrUnavailable)
	}
	var notFound error
	err := b.Call(func() error {
		err := fn()
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	}, 0)
	if notFound != nil {
		return notFound
	}
	return err
}

func (cbf *CircuitBreakerFetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	var resp *Response
	err := cbf.call(rawURL, func() error {
		var err error
		resp, err = cbf.getter.Get(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, rawURL string) (*Response, error) {
	var resp *Response
	err := cbf.call(rawURL, func() error {
		var err error
		resp, err = cbf.getter.Head(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// States reports "open" or "closed" for every host seen so far.
func (cbf *CircuitBreakerFetcher) States() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string, len(cbf.breakers))
	for host, b := range cbf.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
