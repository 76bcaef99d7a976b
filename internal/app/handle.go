// Package app wires a submitted form to the similarity API and renders the
// outcome.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/statscout/internal/adapters/similarity"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/render"
	"github.com/okian/statscout/internal/domain/submission"
	"github.com/okian/statscout/pkg/logger"
	"github.com/okian/statscout/pkg/metrics"
)

// Outcome labels for submissions that never reached the API or failed after it.
const (
	outcomeSuccess     = "success"
	outcomeUnavailable = "unavailable"
	outcomeRender      = "render"
)

// Submitter performs the similarity call.
type Submitter interface {
	SubmitOffense(ctx context.Context, q query.OffenseQuery) (json.RawMessage, error)
}

// Handle binds one form and one output to a submitter. Its lifetime is the
// lifetime of the page or command that mounted it.
type Handle struct {
	submitter Submitter
	form      query.Form
	out       Output

	policy   query.Policy
	logger   logger.Logger
	tracker  *Tracker
	guard    bool
	guardKey string

	mu      sync.RWMutex
	mode    query.Mode
	pending atomic.Int32
}

// Mount creates a handle. submitter, form and out are required.
func Mount(submitter Submitter, form query.Form, out Output, opts ...Option) *Handle {
	if submitter == nil || form == nil || out == nil {
		panic("app: Mount requires a submitter, a form and an output")
	}
	h := &Handle{
		submitter: submitter,
		form:      form,
		out:       out,
		policy:    query.PolicyOmit,
		logger:    logger.Nop(),
		mode:      query.ModeOffense,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tracker == nil {
		h.tracker = NewTracker()
	}
	return h
}

// SelectMode switches the active field group.
func (h *Handle) SelectMode(m query.Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = m
}

// Mode returns the selected mode.
func (h *Handle) Mode() query.Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// Groups returns the field groups as the selected mode leaves them.
func (h *Handle) Groups() []query.FieldGroup {
	return query.Groups(h.Mode())
}

// SubmitDisabled reports whether the submit control should be disabled.
func (h *Handle) SubmitDisabled() bool {
	if !h.guard {
		return false
	}
	if h.guardKey != "" {
		return h.tracker.Pending(h.guardKey)
	}
	return h.pending.Load() > 0
}

// acquire takes the submit slot when the guard is on. Keyed handles share
// the slot through the tracker, others hold it themselves.
func (h *Handle) acquire() bool {
	if !h.guard {
		h.pending.Add(1)
		return true
	}
	if h.guardKey != "" {
		if !h.tracker.acquire(h.guardKey) {
			return false
		}
		h.pending.Add(1)
		return true
	}
	return h.pending.CompareAndSwap(0, 1)
}

func (h *Handle) release() {
	h.pending.Add(-1)
	if h.guard && h.guardKey != "" {
		h.tracker.release(h.guardKey)
	}
}

// Submit runs one submission: placeholder, payload, a single API call, then
// the rendered result or error. The output always ends up with the final
// text; the returned error is for the caller's logs.
func (h *Handle) Submit(ctx context.Context) error {
	if !h.acquire() {
		h.tracker.reject()
		h.out.SetText(render.Error(ErrSubmitPending))
		return ErrSubmitPending
	}
	defer h.release()

	id, ok := submission.IDFrom(ctx)
	if !ok {
		id = submission.NewID()
		ctx = submission.WithID(ctx, id)
	}
	mode := h.Mode()
	log := h.logger.With(logger.String("request_id", id), logger.String("mode", string(mode)))

	h.out.SetText(render.Loading)
	finish := h.tracker.begin()
	start := time.Now()

	text, outcome, err := h.run(ctx, mode)
	if outcome == outcomeSuccess {
		finish("")
	} else {
		finish(outcome)
	}
	metrics.RecordSubmission(string(mode), outcome)
	h.out.SetText(text)

	if err != nil {
		log.Warn(ctx, "submission failed", logger.String("outcome", outcome), logger.Duration("elapsed", time.Since(start)), logger.Error(err))
		return err
	}
	log.Info(ctx, "submission rendered", logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (h *Handle) run(ctx context.Context, mode query.Mode) (string, string, error) {
	if !mode.Supported() {
		err := fmt.Errorf("%w: %s", ErrModeUnavailable, mode)
		return render.Error(err), outcomeUnavailable, err
	}

	body, err := h.submitter.SubmitOffense(ctx, query.FromForm(h.form, h.policy))
	if err != nil {
		return render.Error(err), similarity.KindOf(err).String(), err
	}

	text, err := render.Result(body)
	if err != nil {
		return render.Error(err), outcomeRender, err
	}
	return text, outcomeSuccess, nil
}
