package app

import (
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/pkg/logger"
)

// Option applies a configuration option to a Handle.
type Option func(*Handle)

// WithPolicy sets how blank stat fields are coerced.
func WithPolicy(p query.Policy) Option {
	return func(h *Handle) {
		if p != "" {
			h.policy = p
		}
	}
}

// WithMode sets the initially selected mode.
func WithMode(m query.Mode) Option {
	return func(h *Handle) {
		if m != "" {
			h.mode = m
		}
	}
}

// WithLogger sets a custom logger for the handle.
func WithLogger(l logger.Logger) Option {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTracker shares a tracker between handles.
func WithTracker(t *Tracker) Option {
	return func(h *Handle) {
		if t != nil {
			h.tracker = t
		}
	}
}

// WithSubmitGuard refuses a submission while another one from the same
// handle is pending.
func WithSubmitGuard(enabled bool) Option {
	return func(h *Handle) {
		h.guard = enabled
	}
}

// WithGuardKey makes the submit guard span every handle sharing the tracker
// and key, e.g. all requests from one client.
func WithGuardKey(key string) Option {
	return func(h *Handle) {
		h.guardKey = key
	}
}
