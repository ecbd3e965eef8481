package orchestrator

import (
	"storyd/internal/keypool"
	"storyd/internal/upstream"
	"storyd/pkg/types"
)

// Health reports which providers are configured, key availability and cache
// counters. It does not probe the providers.
func (o *Orchestrator) Health() types.HealthResponse {
	st := o.cache.Stats()
	resp := types.HealthResponse{
		Status:    "healthy",
		Services:  make(map[string]bool, 3),
		Providers: make(map[string]types.ServiceHealth, 3),
		Cache: types.CacheHealth{
			Entries:  st.Entries,
			Capacity: st.Capacity,
			Hits:     st.Hits,
			Misses:   st.Misses,
			Evicted:  st.Evicted,
		},
		UptimeSeconds: int64(o.now().Sub(o.startTime).Seconds()),
	}
	addService(&resp, upstream.ProviderGemini, keyedHealth(o.vision != nil && o.story != nil, o.geminiKeys))

	resp.ImageProvider = upstream.ProviderStability
	switch {
	case o.images == nil:
		addService(&resp, upstream.ProviderStability, types.ServiceHealth{Status: "not configured"})
	case o.images.NeedsKey():
		resp.ImageProvider = o.images.Name()
		addService(&resp, o.images.Name(), keyedHealth(true, o.imageKeys))
	default:
		resp.ImageProvider = o.images.Name()
		addService(&resp, o.images.Name(), types.ServiceHealth{Configured: true, Status: "active"})
	}

	if o.narrator != nil {
		addService(&resp, upstream.ProviderTTS, types.ServiceHealth{Configured: true, Status: "active"})
	} else {
		addService(&resp, upstream.ProviderTTS, types.ServiceHealth{Status: "not configured"})
	}
	return resp
}

func addService(resp *types.HealthResponse, name string, h types.ServiceHealth) {
	resp.Services[name] = h.Configured
	resp.Providers[name] = h
}

func keyedHealth(adapter bool, pool *keypool.Pool) types.ServiceHealth {
	if !adapter || pool == nil {
		zero := 0
		return types.ServiceHealth{Status: "not configured", AvailableKeys: &zero, TotalKeys: &zero}
	}
	avail, total := pool.Available(), pool.Len()
	h := types.ServiceHealth{Configured: true, AvailableKeys: &avail, TotalKeys: &total, Status: "active"}
	if avail == 0 {
		h.Status = "cooling down"
	}
	return h
}
