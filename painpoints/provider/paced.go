package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced limits how often the wrapped Generator is called.
type Paced struct {
	next    Generator
	limiter *rate.Limiter
}

// WithPacing wraps g with a token bucket of rps calls per second and the given burst.
// rps <= 0 returns g unchanged.
func WithPacing(g Generator, rps float64, burst int) Generator {
	if rps <= 0 {
		return g
	}
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: g, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p *Paced) Model() string { return p.next.Model() }

func (p *Paced) Generate(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.Generate(ctx, req)
}
