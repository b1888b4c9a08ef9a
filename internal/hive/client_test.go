package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hive_schedule/internal/models"
)

type fakeTokens struct {
	mu        sync.Mutex
	token     string
	err       error
	refreshes int
	rejected  []string
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.err
}

func (f *fakeTokens) RefreshRejected(_ context.Context, rejected string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, rejected)
	f.refreshes++
	f.token = "tok-refreshed"
	return nil
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

// fakeHive serves GET and POST on /nodes/heating/{id}; respond may override.
type fakeHive struct {
	mu       sync.Mutex
	current  string
	requests []recordedRequest
	respond  func(n int, r *http.Request) (int, bool)
}

func (f *fakeHive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
	n := len(f.requests)
	f.mu.Unlock()

	if f.respond != nil {
		if status, handled := f.respond(n, r); handled {
			w.WriteHeader(status)
			return
		}
	}
	switch r.Method {
	case http.MethodGet:
		_, _ = io.WriteString(w, f.current)
	case http.MethodPost:
		f.mu.Lock()
		f.current = string(body)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	}
}

func (f *fakeHive) posts() []recordedRequest {
	var out []recordedRequest
	for _, r := range f.requests {
		if r.method == http.MethodPost {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, f *fakeHive, tokens *fakeTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client(), tokens, nil)
}

func compact(t *testing.T, raw []byte) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		t.Fatalf("compact: %v", err)
	}
	return buf.String()
}

func postedWeek(t *testing.T, body []byte) map[string]json.RawMessage {
	t.Helper()
	var payload struct {
		Schedule map[string]json.RawMessage `json:"schedule"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode posted body: %v", err)
	}
	return payload.Schedule
}

func TestSetDay_PreservesOtherDays(t *testing.T) {
	f := &fakeHive{current: `{"schedule":` + weekJSON + `}`}
	tokens := &fakeTokens{token: "tok-1"}
	c := newTestClient(t, f, tokens)

	err := c.SetDay(context.Background(), "node-1", models.Monday, models.DaySchedule{
		{Time: "06:30", Temp: 18}, {Time: "21:30", Temp: 16},
	})
	if err != nil {
		t.Fatalf("SetDay: %v", err)
	}

	if len(f.requests) != 2 || f.requests[0].method != http.MethodGet || f.requests[1].method != http.MethodPost {
		t.Fatalf("expected GET then POST, got %+v", f.requests)
	}
	post := f.requests[1]
	if post.path != "/nodes/heating/node-1" {
		t.Fatalf("unexpected path %s", post.path)
	}
	if got := post.header.Get("Authorization"); got != "tok-1" {
		t.Fatalf("Authorization=%q, want raw token", got)
	}
	if post.header.Get("Origin") != "https://my.hivehome.com" || post.header.Get("Referer") != "https://my.hivehome.com/" {
		t.Fatalf("missing web-app headers: %v", post.header)
	}

	var original map[string]json.RawMessage
	if err := json.Unmarshal([]byte(weekJSON), &original); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	written := postedWeek(t, post.body)
	for _, d := range models.Days {
		if d == models.Monday {
			continue
		}
		if compact(t, written[string(d)]) != compact(t, original[string(d)]) {
			t.Errorf("%s changed: %s", d, written[string(d)])
		}
	}
	if got := compact(t, written["monday"]); got != `[{"value":{"target":18},"start":390},{"value":{"target":16},"start":1290}]` {
		t.Fatalf("unexpected monday %s", got)
	}
}

func TestSetDay_Idempotent(t *testing.T) {
	f := &fakeHive{current: `{"schedule":` + weekJSON + `}`}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})
	day := models.DaySchedule{{Time: "07:00", Temp: 20}}

	for i := 0; i < 2; i++ {
		if err := c.SetDay(context.Background(), "node-1", models.Friday, day); err != nil {
			t.Fatalf("SetDay #%d: %v", i, err)
		}
	}
	posts := f.posts()
	if len(posts) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(posts))
	}
	if compact(t, posts[0].body) != compact(t, posts[1].body) {
		t.Fatalf("second write differs:\n%s\n%s", posts[0].body, posts[1].body)
	}
}

func TestSetDay_CannotPreserve(t *testing.T) {
	t.Run("day missing", func(t *testing.T) {
		f := &fakeHive{current: `{"schedule":{"monday":[],"tuesday":[]}}`}
		c := newTestClient(t, f, &fakeTokens{token: "tok"})

		err := c.SetDay(context.Background(), "node-1", models.Monday, models.DaySchedule{{Time: "06:00", Temp: 18}})
		if !errors.Is(err, ErrCannotPreserveSchedule) {
			t.Fatalf("expected ErrCannotPreserveSchedule, got %v", err)
		}
		if len(f.posts()) != 0 {
			t.Fatalf("no write may be attempted")
		}
	})

	t.Run("read fails", func(t *testing.T) {
		f := &fakeHive{respond: func(_ int, r *http.Request) (int, bool) {
			return http.StatusInternalServerError, r.Method == http.MethodGet
		}}
		c := newTestClient(t, f, &fakeTokens{token: "tok"})

		err := c.SetDay(context.Background(), "node-1", models.Monday, models.DaySchedule{{Time: "06:00", Temp: 18}})
		if !errors.Is(err, ErrCannotPreserveSchedule) {
			t.Fatalf("expected ErrCannotPreserveSchedule, got %v", err)
		}
		var up *UpstreamError
		if !errors.As(err, &up) || up.Status != http.StatusInternalServerError {
			t.Fatalf("expected the upstream cause to be kept, got %v", err)
		}
		if len(f.posts()) != 0 {
			t.Fatalf("no write may be attempted")
		}
	})
}

func TestSetDay_ValidationBeforeNetwork(t *testing.T) {
	f := &fakeHive{current: `{"schedule":` + weekJSON + `}`}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	if err := c.SetDay(context.Background(), "node-1", models.Monday, models.DaySchedule{{Time: "7am", Temp: 18}}); !errors.Is(err, ErrMalformedTime) {
		t.Fatalf("expected ErrMalformedTime, got %v", err)
	}
	if err := c.SetDay(context.Background(), "node-1", models.Day("funday"), nil); err == nil {
		t.Fatalf("expected unknown day error")
	}
	if len(f.requests) != 0 {
		t.Fatalf("validation errors must not hit the API")
	}
}

func TestSetDay_NoToken(t *testing.T) {
	f := &fakeHive{}
	c := newTestClient(t, f, &fakeTokens{err: errors.New("mfa pending")})

	err := c.SetDay(context.Background(), "node-1", models.Monday, models.DaySchedule{{Time: "06:00", Temp: 18}})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Fatalf("expected no requests")
	}
}

func TestSetDay_MixedCaseDay(t *testing.T) {
	f := &fakeHive{current: `{"schedule":` + weekJSON + `}`}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	if err := c.SetDay(context.Background(), "node-1", models.Day("Monday"), models.DaySchedule{{Time: "05:00", Temp: 21}}); err != nil {
		t.Fatalf("SetDay: %v", err)
	}
	written := postedWeek(t, f.posts()[0].body)
	if len(written) != 7 {
		t.Fatalf("expected 7 days, got %v", written)
	}
	if _, ok := written["Monday"]; ok {
		t.Fatalf("day key must be lower-case: %s", f.posts()[0].body)
	}
	if got := compact(t, written["monday"]); got != `[{"value":{"target":21},"start":300}]` {
		t.Fatalf("unexpected monday %s", got)
	}
}

func TestSetFullWeek_MixedCaseDays(t *testing.T) {
	f := &fakeHive{}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	week := models.WeekSchedule{
		models.Day("Monday"):   {{Time: "06:00", Temp: 19}},
		models.Day(" SUNDAY "): {{Time: "09:00", Temp: 20}},
	}
	if err := c.SetFullWeek(context.Background(), "node-1", week); err != nil {
		t.Fatalf("SetFullWeek: %v", err)
	}
	written := postedWeek(t, f.requests[0].body)
	if got := compact(t, written["monday"]); got != `[{"value":{"target":19},"start":360}]` {
		t.Fatalf("monday replaced by default: %s", got)
	}
	if got := compact(t, written["sunday"]); got != `[{"value":{"target":20},"start":540}]` {
		t.Fatalf("unexpected sunday %s", got)
	}
}

func TestSetFullWeek_DuplicateDay(t *testing.T) {
	f := &fakeHive{}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	week := models.WeekSchedule{
		models.Monday:        {{Time: "06:00", Temp: 19}},
		models.Day("Monday"): {{Time: "07:00", Temp: 20}},
	}
	if err := c.SetFullWeek(context.Background(), "node-1", week); !errors.Is(err, ErrDuplicateDay) {
		t.Fatalf("expected ErrDuplicateDay, got %v", err)
	}
	if len(f.requests) != 0 {
		t.Fatalf("expected no requests")
	}
}

func TestSetFullWeek_FillsOmittedDays(t *testing.T) {
	f := &fakeHive{}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	week := models.WeekSchedule{
		models.Saturday: {{Time: "08:00", Temp: 20}},
	}
	if err := c.SetFullWeek(context.Background(), "node-1", week); err != nil {
		t.Fatalf("SetFullWeek: %v", err)
	}
	if len(f.requests) != 1 || f.requests[0].method != http.MethodPost {
		t.Fatalf("expected a single POST and no read, got %+v", f.requests)
	}
	written := postedWeek(t, f.requests[0].body)
	if len(written) != 7 {
		t.Fatalf("expected 7 days, got %d", len(written))
	}
	if got := compact(t, written["monday"]); got != `[{"value":{"target":16},"start":0}]` {
		t.Fatalf("unexpected default day %s", got)
	}
	if got := compact(t, written["saturday"]); got != `[{"value":{"target":20},"start":480}]` {
		t.Fatalf("unexpected saturday %s", got)
	}
}

func TestDo_401RefreshesOnceAndRetries(t *testing.T) {
	f := &fakeHive{}
	f.respond = func(n int, r *http.Request) (int, bool) {
		return http.StatusUnauthorized, n == 1
	}
	tokens := &fakeTokens{token: "tok-old"}
	c := newTestClient(t, f, tokens)

	if err := c.SetFullWeek(context.Background(), "node-1", nil); err != nil {
		t.Fatalf("SetFullWeek: %v", err)
	}
	if tokens.refreshes != 1 {
		t.Fatalf("expected 1 refresh, got %d", tokens.refreshes)
	}
	if len(f.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(f.requests))
	}
	if got := f.requests[1].header.Get("Authorization"); got != "tok-refreshed" {
		t.Fatalf("retry used %q", got)
	}
	if len(tokens.rejected) != 1 || tokens.rejected[0] != "tok-old" {
		t.Fatalf("expected the rejected token to be reported, got %v", tokens.rejected)
	}
}

func TestDo_401TwiceFails(t *testing.T) {
	f := &fakeHive{respond: func(int, *http.Request) (int, bool) { return http.StatusUnauthorized, true }}
	tokens := &fakeTokens{token: "tok"}
	c := newTestClient(t, f, tokens)

	err := c.SetFullWeek(context.Background(), "node-1", nil)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if len(f.requests) != 2 || tokens.refreshes != 1 {
		t.Fatalf("expected exactly 2 attempts and 1 refresh, got %d / %d", len(f.requests), tokens.refreshes)
	}
}

func TestDo_StatusMapping(t *testing.T) {
	f := &fakeHive{respond: func(int, *http.Request) (int, bool) { return http.StatusNotFound, true }}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})
	if _, err := c.GetSchedule(context.Background(), "ghost"); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}

	f.respond = func(int, *http.Request) (int, bool) { return http.StatusBadGateway, true }
	var up *UpstreamError
	if err := c.SetFullWeek(context.Background(), "node-1", nil); !errors.As(err, &up) || up.Status != http.StatusBadGateway {
		t.Fatalf("expected UpstreamError 502, got %v", err)
	}
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, &http.Client{Timeout: 50 * time.Millisecond}, &fakeTokens{token: "tok"}, nil)
	if _, err := c.GetSchedule(context.Background(), "node-1"); !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestDo_CancelledContextIsNotRetried(t *testing.T) {
	f := &fakeHive{}
	tokens := &fakeTokens{token: "tok"}
	c := newTestClient(t, f, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	f.respond = func(int, *http.Request) (int, bool) {
		cancel()
		return http.StatusUnauthorized, true
	}
	err := c.SetFullWeek(ctx, "node-1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(f.requests))
	}
}

func TestGetSchedule_MalformedEntry(t *testing.T) {
	f := &fakeHive{current: `{"schedule":{"monday":[{"value":{"target":18},"start":1500}]}}`}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	if _, err := c.GetSchedule(context.Background(), "node-1"); !errors.Is(err, ErrMalformedSchedule) {
		t.Fatalf("expected ErrMalformedSchedule, got %v", err)
	}
}

func TestGetSchedule(t *testing.T) {
	f := &fakeHive{current: `{"nodes":[{"id":"node-1","attributes":{"schedule":{"reportedValue":` + weekJSON + `}}}]}`}
	c := newTestClient(t, f, &fakeTokens{token: "tok"})

	week, err := c.GetSchedule(context.Background(), "node-1")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got := week[models.Monday]; len(got) != 1 || got[0].Time != "06:30" || got[0].Temp != 18 {
		t.Fatalf("unexpected monday %+v", got)
	}
	if !strings.HasSuffix(f.requests[0].path, "/nodes/heating/node-1") || f.requests[0].method != http.MethodGet {
		t.Fatalf("unexpected request %+v", f.requests[0])
	}
}
