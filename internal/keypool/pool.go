// Package keypool spreads requests for one provider across several API keys
// and quarantines keys the provider reported as over quota.
package keypool

import (
	"errors"
	"sync"
	"time"
)

// ErrEmptyPool is returned when a pool is built without credentials.
var ErrEmptyPool = errors.New("keypool: no API keys configured")

// Pool is a round-robin credential pool with per-key cooldown.
type Pool struct {
	mu       sync.Mutex
	keys     []string
	cooldown []time.Time
	idx      int
	now      func() time.Time
}

// New builds a pool from keys. Blank and duplicate keys are dropped; at least
// one usable key is required.
func New(keys []string, now func() time.Time) (*Pool, error) {
	if now == nil {
		now = time.Now
	}
	seen := make(map[string]bool, len(keys))
	var clean []string
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		clean = append(clean, k)
	}
	if len(clean) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{keys: clean, cooldown: make([]time.Time, len(clean)), now: now}, nil
}

// Next returns the next key in rotation, skipping keys that are cooling down.
// When every key is cooling down the key at the rotation index is returned
// anyway with ready=false; callers decide whether to use it.
func (p *Pool) Next() (key string, ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := len(p.keys)
	for i := 0; i < n; i++ {
		j := (p.idx + i) % n
		if !now.Before(p.cooldown[j]) {
			p.idx = (j + 1) % n
			return p.keys[j], true
		}
	}
	j := p.idx
	p.idx = (j + 1) % n
	return p.keys[j], false
}

// MarkCooldown keeps key out of rotation for d. Unknown keys are ignored.
func (p *Pool) MarkCooldown(key string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, k := range p.keys {
		if k == key {
			p.cooldown[i] = p.now().Add(d)
			return
		}
	}
}

// NextReady reports how long until at least one key is usable. Zero means a
// key is available now.
func (p *Pool) NextReady() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	var soonest time.Duration = -1
	for _, until := range p.cooldown {
		wait := until.Sub(now)
		if wait <= 0 {
			return 0
		}
		if soonest < 0 || wait < soonest {
			soonest = wait
		}
	}
	return soonest
}

// Len returns the number of keys in the pool.
func (p *Pool) Len() int { return len(p.keys) }

// Available counts keys that are not cooling down.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := 0
	for _, until := range p.cooldown {
		if !now.Before(until) {
			n++
		}
	}
	return n
}
