package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/statscout/internal/adapters/http/api"
	"github.com/okian/statscout/internal/adapters/similarity"
	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/submission"
)

// stubSubmitter answers every call with the configured body or error.
type stubSubmitter struct {
	mu   sync.Mutex
	body json.RawMessage
	err  error
	got  []query.OffenseQuery
	ids  []string
}

func (s *stubSubmitter) SubmitOffense(ctx context.Context, q query.OffenseQuery) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, q)
	id, _ := submission.IDFrom(ctx)
	s.ids = append(s.ids, id)
	return s.body, s.err
}

func (s *stubSubmitter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func newRouter(sub *stubSubmitter, tracker *app.Tracker) http.Handler {
	r := chi.NewRouter()
	r.Use(api.SubmissionID)
	server := api.NewServer(api.Dependencies{
		Submitter:     sub,
		HandleOptions: []app.Option{app.WithTracker(tracker)},
	}, tracker)
	server.Register(context.Background(), r)
	return r
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func postForm(h http.Handler, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/similarity/offense", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		sub := &stubSubmitter{body: json.RawMessage(`{"ok":true}`)}
		tracker := app.NewTracker()
		h := newRouter(sub, tracker)

		Convey("Then the health endpoint serves metrics", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("Then the stats endpoint reports tracker totals", func() {
			postForm(h, "passing_yards_pg=1")

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["total"], ShouldEqual, 1.0)
			So(body["succeeded"], ShouldEqual, 1.0)
			So(body["inFlight"], ShouldEqual, 0.0)
		})

		Convey("Then unknown routes are not found", func() {
			req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSimilarityHandler(t *testing.T) {
	Convey("Given an API backed by a stub similarity service", t, func() {
		sub := &stubSubmitter{body: json.RawMessage(`{"results":[{"name":"A","score":0.9}]}`)}
		h := newRouter(sub, app.NewTracker())

		Convey("When posting a form", func() {
			w := postForm(h, "passing_yards_pg=250.5&rushing_tds_pg=1&k=")

			Convey("Then the rendered results come back", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["ok"], ShouldBeTrue)
				So(body["output"], ShouldEqual, "[\n  {\n    \"name\": \"A\",\n    \"score\": 0.9\n  }\n]")
				So(body, ShouldNotContainKey, "error_kind")
			})

			Convey("And the payload carries the entered stats and default k", func() {
				So(sub.calls(), ShouldEqual, 1)
				q := sub.got[0]
				So(q.PassingYardsPG, ShouldResemble, query.Num(250.5))
				So(q.RushingTDsPG, ShouldResemble, query.Num(1))
				So(q.IntsPG.Present, ShouldBeFalse)
				So(q.K, ShouldResemble, query.Num(query.DefaultK))
			})
		})

		Convey("When posting a JSON object of fields", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/similarity/offense",
				strings.NewReader(`{"passing_yards_pg":"300","ints_pg":0.5,"k":null,"receiving_yards_pg":"12"}`))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then strings and numbers are both accepted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				q := sub.got[0]
				So(q.PassingYardsPG, ShouldResemble, query.Num(300))
				So(q.IntsPG, ShouldResemble, query.Num(0.5))
				So(q.ReceivingYardsPG, ShouldResemble, query.Num(12))
				So(q.K, ShouldResemble, query.Num(query.DefaultK))
			})
		})

		Convey("When the body is not a JSON object", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/similarity/offense", strings.NewReader(`[1,2]`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is rejected before any call", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
				So(sub.calls(), ShouldEqual, 0)
			})
		})

		Convey("When the mode is unknown", func() {
			w := postForm(h, "mode=special-teams")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_mode")
				So(sub.calls(), ShouldEqual, 0)
			})
		})

		Convey("When the defense mode is submitted", func() {
			w := postForm(h, "mode=defense&tackles_pg=7")

			Convey("Then an error is rendered without a network call", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				body := decode(w)
				So(body["ok"], ShouldBeFalse)
				So(body["error_kind"], ShouldEqual, "mode_unavailable")
				So(body["output"], ShouldStartWith, "Error: ")
				So(sub.calls(), ShouldEqual, 0)
			})
		})

		Convey("When the request carries an id", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/similarity/offense", strings.NewReader("k=3"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set(submission.HeaderRequestID, "req-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed and handed to the submitter", func() {
				So(w.Header().Get(submission.HeaderRequestID), ShouldEqual, "req-42")
				So(sub.ids, ShouldResemble, []string{"req-42"})
			})
		})

		Convey("When no id is sent", func() {
			w := postForm(h, "k=3")

			Convey("Then one is generated", func() {
				So(w.Header().Get(submission.HeaderRequestID), ShouldNotBeEmpty)
				So(sub.ids[0], ShouldEqual, w.Header().Get(submission.HeaderRequestID))
			})
		})
	})
}

func TestSimilarityHandler_Failures(t *testing.T) {
	Convey("Given a similarity service that fails", t, func() {
		cases := []struct {
			name string
			err  error
			kind string
			text string
		}{
			{
				name: "with an HTTP status",
				err:  &similarity.Error{Kind: similarity.KindHTTPStatus, StatusCode: 500, StatusText: "Internal Server Error", Body: "bad input"},
				kind: "http_status",
				text: "Error: API 500 Internal Server Error - bad input",
			},
			{
				name: "in transport",
				err:  &similarity.Error{Kind: similarity.KindTransport, Err: errors.New("connection refused")},
				kind: "transport",
				text: "Error: connection refused",
			},
		}

		for _, tc := range cases {
			Convey("When the call fails "+tc.name, func() {
				sub := &stubSubmitter{err: tc.err}
				w := postForm(newRouter(sub, app.NewTracker()), "passing_yards_pg=1")

				Convey("Then the error is rendered as output", func() {
					So(w.Code, ShouldEqual, http.StatusBadGateway)
					body := decode(w)
					So(body["ok"], ShouldBeFalse)
					So(body["error_kind"], ShouldEqual, tc.kind)
					So(body["output"], ShouldEqual, tc.text)
				})
			})
		}
	})
}

func TestCORS(t *testing.T) {
	Convey("Given an API restricted to one origin", t, func() {
		r := chi.NewRouter()
		api.NewServer(api.Dependencies{
			Submitter:      &stubSubmitter{body: json.RawMessage(`{}`)},
			AllowedOrigins: []string{"http://scout.test"},
		}, nil).Register(context.Background(), r)

		preflight := func(origin string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodOptions, "/api/similarity/offense", nil)
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w
		}

		Convey("Then the allowed origin passes preflight", func() {
			w := preflight("http://scout.test")
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://scout.test")
		})

		Convey("Then other origins get no grant", func() {
			w := preflight("http://elsewhere.test")
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
		})

		Convey("Then stats without a provider is an empty object", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "{}")
		})
	})
}

func TestNewServer_NilSubmitter(t *testing.T) {
	Convey("Given no submitter", t, func() {
		So(func() { api.NewServer(api.Dependencies{}, nil) }, ShouldPanic)
	})
}

// gateSubmitter blocks every call until release is closed.
type gateSubmitter struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateSubmitter) SubmitOffense(context.Context, query.OffenseQuery) (json.RawMessage, error) {
	g.entered <- struct{}{}
	<-g.release
	return json.RawMessage(`{"results":[]}`), nil
}

func TestSimilarityHandler_SubmitGuard(t *testing.T) {
	Convey("Given the submit guard and one client", t, func() {
		gate := &gateSubmitter{entered: make(chan struct{}, 2), release: make(chan struct{})}
		tracker := app.NewTracker()
		r := chi.NewRouter()
		api.NewServer(api.Dependencies{
			Submitter:     gate,
			HandleOptions: []app.Option{app.WithTracker(tracker), app.WithSubmitGuard(true)},
		}, tracker).Register(context.Background(), r)

		Convey("When a second request arrives while the first is pending", func() {
			first := make(chan *httptest.ResponseRecorder, 1)
			go func() { first <- postForm(r, "passing_yards_pg=1") }()
			<-gate.entered

			second := postForm(r, "passing_yards_pg=2")

			Convey("Then it is refused with 409 and the first still completes", func() {
				So(second.Code, ShouldEqual, http.StatusConflict)
				body := decode(second)
				So(body["error_kind"], ShouldEqual, "submit_pending")
				So(body["output"], ShouldEqual, "Error: a submission is already pending")
				close(gate.release)
				So((<-first).Code, ShouldEqual, http.StatusOK)
				So(tracker.GetStats()["rejected"], ShouldEqual, int64(1))
			})
		})
	})
}

// ctxSubmitter records what the call's context looked like.
type ctxSubmitter struct {
	seen error
	id   string
}

func (s *ctxSubmitter) SubmitOffense(ctx context.Context, _ query.OffenseQuery) (json.RawMessage, error) {
	s.seen = ctx.Err()
	s.id, _ = submission.IDFrom(ctx)
	return json.RawMessage(`{"results":[]}`), nil
}

func TestSimilarityHandler_Detached(t *testing.T) {
	Convey("Given a request canceled before the handler runs", t, func() {
		sub := &ctxSubmitter{}
		r := chi.NewRouter()
		r.Use(api.SubmissionID)
		api.NewServer(api.Dependencies{Submitter: sub}, nil).Register(context.Background(), r)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/similarity/offense", strings.NewReader("k=3")).WithContext(ctx)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Request-ID", "detached-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		Convey("Then the call runs uncanceled and keeps the submission id", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(sub.seen, ShouldBeNil)
			So(sub.id, ShouldEqual, "detached-1")
		})
	})
}
