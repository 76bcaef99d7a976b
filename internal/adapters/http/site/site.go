// Package site serves the HTML form that drives a similarity search.
package site

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/render"
	"github.com/okian/statscout/pkg/logger"
)

// Dependencies required by the form handlers.
type Dependencies struct {
	Submitter app.Submitter

	// HandleOptions are applied to each handle mounted per request.
	HandleOptions []app.Option

	Logger logger.Logger
}

var fieldLabels = map[string]string{
	query.FieldPassingYardsPG:   "Passing yards / game",
	query.FieldPassingTDsPG:     "Passing TDs / game",
	query.FieldIntsPG:           "Interceptions / game",
	query.FieldRushingYardsPG:   "Rushing yards / game",
	query.FieldRushingTDsPG:     "Rushing TDs / game",
	query.FieldReceivingYardsPG: "Receiving yards / game",
	"tackles_pg":                "Tackles / game",
	"sacks_pg":                  "Sacks / game",
	"def_ints_pg":               "Interceptions / game",
	"forced_fumbles_pg":         "Forced fumbles / game",
	"passes_defended_pg":        "Passes defended / game",
}

type fieldView struct {
	Name  string
	Label string
	Value string
}

type groupView struct {
	Mode     query.Mode
	Visible  bool
	Required bool
	Fields   []fieldView
}

type pageData struct {
	Mode           query.Mode
	Modes          []query.Mode
	Groups         []groupView
	K              string
	Output         string
	SubmitDisabled bool
}

// Register attaches the form routes to r.
func Register(_ context.Context, r chi.Router, deps Dependencies) {
	if r == nil {
		panic("router is nil")
	}
	if deps.Submitter == nil {
		panic("site: submitter is nil")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	h := &formHandler{deps: deps, log: deps.Logger.Named("site")}

	r.Get("/", h.HandleForm)
	r.Post("/", h.HandleSubmit)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(FS())))
}

type formHandler struct {
	deps Dependencies
	log  logger.Logger
}

// HandleForm handles GET / by rendering an empty form for ?mode=.
func (h *formHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	mode, err := query.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.write(w, r, http.StatusBadRequest, newPage(query.ModeOffense, nil, render.Error(err), false))
		return
	}
	h.write(w, r, http.StatusOK, newPage(mode, nil, "", false))
}

// HandleSubmit handles POST / by running one submission and re-rendering
// the form with the entered values and the output text.
func (h *formHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		err = fmt.Errorf("%w: %w", ErrBadForm, err)
		h.write(w, r, http.StatusBadRequest, newPage(query.ModeOffense, nil, render.Error(err), false))
		return
	}
	form := r.PostForm
	mode, err := query.ParseMode(form.Get("mode"))
	if err != nil {
		h.write(w, r, http.StatusBadRequest, newPage(query.ModeOffense, form, render.Error(err), false))
		return
	}

	out := &app.Buffer{}
	opts := append(append([]app.Option(nil), h.deps.HandleOptions...), app.WithMode(mode), app.WithLogger(h.log), app.WithGuardKey(clientKey(r)))
	handle := app.Mount(h.deps.Submitter, form, out, opts...)

	// failures are already rendered into out and logged by the handle
	// a dropped connection or a second click must not cancel this call
	_ = handle.Submit(context.WithoutCancel(r.Context()))

	h.write(w, r, http.StatusOK, newPage(handle.Mode(), form, out.Text(), handle.SubmitDisabled()))
}

func (h *formHandler) write(w http.ResponseWriter, r *http.Request, status int, page pageData) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		h.log.Error(r.Context(), "render form", logger.Error(err))
		http.Error(w, ErrRender.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func newPage(mode query.Mode, form url.Values, output string, disabled bool) pageData {
	groups := query.Groups(mode)
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		fields := make([]fieldView, 0, len(g.Fields))
		for _, name := range g.Fields {
			fields = append(fields, fieldView{Name: name, Label: fieldLabels[name], Value: form.Get(name)})
		}
		views = append(views, groupView{Mode: g.Mode, Visible: g.Visible, Required: g.Required, Fields: fields})
	}
	return pageData{
		Mode:           mode,
		Modes:          []query.Mode{query.ModeOffense, query.ModeDefense},
		Groups:         views,
		K:              form.Get(query.FieldK),
		Output:         output,
		SubmitDisabled: disabled,
	}
}

// clientKey identifies the submitting client for the submit guard.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
