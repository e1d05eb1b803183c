package fhem

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/psufhem/internal/settings"
)

// fakeFHEM mimics a FHEMWEB instance with csrf protection enabled.
type fakeFHEM struct {
	mu       sync.Mutex
	token    string
	reading  string
	requests []url.Values
	headers  []http.Header

	// rotate issues a new token after every rejected request
	rotate bool
	// omitToken suppresses the X-FHEM-csrfToken header
	omitToken bool
	// status, when set, answers every accepted request with this code
	status int
	// body, when set, replaces the jsonlist2 document
	body *string
}

func newFakeFHEM(token, reading string) *fakeFHEM {
	return &fakeFHEM{token: token, reading: reading}
}

func (f *fakeFHEM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	f.requests = append(f.requests, q)
	f.headers = append(f.headers, r.Header.Clone())

	if r.URL.Path != CommandPath {
		http.NotFound(w, r)
		return
	}

	if q.Get("fwcsrf") != f.token {
		if f.rotate {
			f.token = fmt.Sprintf("csrf_%d", len(f.requests))
		}
		f.writeToken(w)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, "FHEMWEB WEB CSRF error: %s", q.Get("fwcsrf"))
		return
	}

	f.writeToken(w)
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}

	fields := strings.Fields(q.Get("cmd"))
	switch {
	case len(fields) == 3 && fields[0] == "set":
		f.reading = fields[2]
		w.WriteHeader(http.StatusOK)
	case len(fields) == 2 && fields[0] == "jsonlist2":
		w.Header().Set("Content-Type", "application/json")
		if f.body != nil {
			_, _ = w.Write([]byte(*f.body))
			return
		}
		_, _ = fmt.Fprintf(w, `{"Arg":%q,"Results":[{"Name":%q,"Readings":{"state":{"Value":%q,"Time":"2024-01-01 12:00:00"}}}],"totalResultsReturned":1}`,
			q.Get("cmd"), fields[1], f.reading)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeFHEM) writeToken(w http.ResponseWriter) {
	if !f.omitToken {
		w.Header().Set(TokenHeader, f.token)
	}
}

func (f *fakeFHEM) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeFHEM) request(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeFHEM) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeFHEM) setBody(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = &body
}

func testConfig(address string) settings.Configuration {
	cfg := settings.Defaults()
	cfg.Address = address
	cfg.DeviceName = "psu"
	return cfg
}

// newTestClient starts srv and returns a client pointed at it plus observed logs.
func newTestClient(t *testing.T, srv http.Handler, opts ...Option) (*Client, *settings.Holder, *observer.ObservedLogs) {
	t.Helper()

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	holder := settings.NewHolder(testConfig(ts.URL))
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)
	return NewClient(holder, opts...), holder, logs
}

type recordingObserver struct {
	mu        sync.Mutex
	exchanges []string
	refreshes int
	errors    []ErrorType
}

func (o *recordingObserver) ObserveExchange(verb string, statusCode int, retried bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exchanges = append(o.exchanges, fmt.Sprintf("%s %d %t", verb, statusCode, retried))
}

func (o *recordingObserver) ObserveTokenRefresh() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshes++
}

func (o *recordingObserver) ObserveError(kind ErrorType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, kind)
}
