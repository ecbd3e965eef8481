package ratelimit

import (
	"context"
	"sort"
)

// Set holds one Limiter per upstream service.
type Set struct {
	limiters map[string]Limiter
	onError  func(service string, err error)
}

// NewSet returns an empty set. onError is called when a limiter backend fails;
// the call is then admitted.
func NewSet(onError func(service string, err error)) *Set {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Set{limiters: make(map[string]Limiter), onError: onError}
}

// Add registers the limiter for service, replacing any previous one.
func (s *Set) Add(service string, l Limiter) {
	s.limiters[service] = l
}

// TryAdmit checks the limiter of service. Services without a limiter are
// always admitted.
func (s *Set) TryAdmit(ctx context.Context, service string) Decision {
	l, ok := s.limiters[service]
	if !ok {
		return Decision{Allowed: true}
	}
	d, err := l.TryAdmit(ctx)
	if err != nil {
		s.onError(service, err)
		return Decision{Allowed: true}
	}
	return d
}

// Services lists registered service ids in sorted order.
func (s *Set) Services() []string {
	out := make([]string, 0, len(s.limiters))
	for k := range s.limiters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
