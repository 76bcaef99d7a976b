package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"

	"github.com/okian/statscout/internal/adapters/similarity"
	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/pkg/logger"
)

const (
	maxBodyBytes = 64 << 10
	fieldMode    = "mode"
)

// Error kinds reported next to a failed output. Similarity failures use
// similarity.Kind names.
const (
	kindModeUnavailable = "mode_unavailable"
	kindRender          = "render"
)

// similarityResponse is the body of POST /api/similarity/offense.
type similarityResponse struct {
	Output    string `json:"output"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// SimilarityHandler runs the form pipeline for scripted clients.
type SimilarityHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewSimilarityHandler creates a new similarity handler.
func NewSimilarityHandler(deps Dependencies) *SimilarityHandler {
	l := deps.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &SimilarityHandler{deps: deps, log: l.Named("api")}
}

// HandleOffense handles POST /api/similarity/offense. The body is either
// form encoded or a JSON object whose values are the raw field strings.
func (h *SimilarityHandler) HandleOffense(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	mode, err := query.ParseMode(form.Get(fieldMode))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_mode", fmt.Errorf("%w: %w", ErrBadMode, err))
		return
	}

	out := &app.Buffer{}
	opts := append(append([]app.Option(nil), h.deps.HandleOptions...), app.WithMode(mode), app.WithLogger(h.log), app.WithGuardKey(clientKey(r)))
	handle := app.Mount(h.deps.Submitter, form, out, opts...)

	// detached so client disconnects and the router timeout leave the call alone
	err = handle.Submit(context.WithoutCancel(r.Context()))
	if err == nil {
		writeJSON(w, http.StatusOK, similarityResponse{Output: out.Text(), OK: true})
		return
	}
	status, kind := classify(err)
	writeJSON(w, status, similarityResponse{Output: out.Text(), ErrorKind: kind})
}

// classify maps a submission failure to a response status and error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrModeUnavailable):
		return http.StatusUnprocessableEntity, kindModeUnavailable
	case errors.Is(err, app.ErrSubmitPending):
		return http.StatusConflict, "submit_pending"
	}
	if k := similarity.KindOf(err); k != similarity.KindUnknown {
		return http.StatusBadGateway, k.String()
	}
	return http.StatusInternalServerError, kindRender
}

func readForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		return r.PostForm, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	form, err := query.ValuesFromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return form, nil
}

// clientKey identifies the submitting client for the submit guard.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
