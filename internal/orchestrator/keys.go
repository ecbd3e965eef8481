package orchestrator

import (
	"context"
	"errors"

	"storyd/internal/keypool"
	"storyd/internal/retry"
	"storyd/internal/upstream"
)

// keyed binds one attempt to the next key of pool. A quota response cools
// that key down so the following attempt rotates to another one. When every
// key is cooling the attempt fails at once with the time until one is usable.
func keyed[T any](o *Orchestrator, provider string, pool *keypool.Pool, op func(ctx context.Context, key string) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		key, ready := pool.Next()
		if !ready {
			return zero, keysCoolingError{provider: provider, retryAfter: pool.NextReady()}
		}
		v, err := op(ctx, key)
		if err != nil && upstream.IsKind(err, upstream.KindQuotaExceeded) {
			cd := o.keyCooldown
			var ue *upstream.Error
			if errors.As(err, &ue) && ue.RetryAfter > cd {
				cd = ue.RetryAfter
			}
			pool.MarkCooldown(key, cd)
			keyCooldownsTotal.WithLabelValues(provider).Inc()
			o.log.Warn().Str("provider", provider).Str("key", maskKey(key)).
				Dur("cooldown", cd).Int("available", pool.Available()).Msg("api key cooling down")
		}
		return v, err
	}
}

// maskKey keeps the last four characters for log correlation.
func maskKey(k string) string {
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}

// withQuotaHint turns a provider quota failure that escaped the retry loop
// into a keysCoolingError carrying the wait until a key is usable again.
func (o *Orchestrator) withQuotaHint(err error, pool *keypool.Pool) error {
	var ue *upstream.Error
	if !errors.As(err, &ue) || ue.Kind != upstream.KindQuotaExceeded {
		return err
	}
	wait := max(ue.RetryAfter, o.keyCooldown)
	if pool != nil {
		if d := pool.NextReady(); d > 0 {
			wait = d
		}
	}
	return keysCoolingError{provider: ue.Provider, retryAfter: wait, err: err}
}

func retryDo[T any](ctx context.Context, o *Orchestrator, provider string, plan retry.Plan, op func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, plan, observed(provider, op), o.retryOptions(provider)...)
}
