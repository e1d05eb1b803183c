package settings

import "sync/atomic"

// Holder publishes the current Configuration. Replace swaps the whole value
// at once, so a reader sees either the old or the new configuration.
type Holder struct {
	current atomic.Pointer[Configuration]
}

// NewHolder creates a holder seeded with cfg.
func NewHolder(cfg Configuration) *Holder {
	h := &Holder{}
	h.Replace(cfg)
	return h
}

// Current returns a copy of the published configuration.
func (h *Holder) Current() Configuration {
	if cfg := h.current.Load(); cfg != nil {
		return *cfg
	}
	return Defaults()
}

// Replace publishes cfg and returns the configuration it replaced.
func (h *Holder) Replace(cfg Configuration) Configuration {
	prev := h.current.Swap(&cfg)
	if prev == nil {
		return Defaults()
	}
	return *prev
}
