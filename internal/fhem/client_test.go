package fhem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/psufhem/internal/settings"
)

func TestClient_DisabledMakesNoRequests(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	for _, address := range []string{"", "   "} {
		cfg := testConfig(address)
		client := NewClient(settings.NewHolder(cfg), WithLogger(zap.NewNop()))
		ctx := context.Background()

		resp, err := client.SendCommand(ctx, "set psu on")
		if resp != nil || err != nil {
			t.Errorf("SendCommand() = %v, %v; want nil, nil", resp, err)
		}
		if err := client.TurnOn(ctx); err != nil {
			t.Errorf("TurnOn() error = %v", err)
		}
		if err := client.TurnOff(ctx); err != nil {
			t.Errorf("TurnOff() error = %v", err)
		}
		on, err := client.State(ctx)
		if on || err != nil {
			t.Errorf("State() = %v, %v; want false, nil", on, err)
		}
		if err := client.LoadToken(ctx); err != nil {
			t.Errorf("LoadToken() error = %v", err)
		}
		if client.Enabled() {
			t.Errorf("Enabled() = true for address %q", address)
		}
	}

	if calls.Load() != 0 {
		t.Errorf("server received %d requests, want 0", calls.Load())
	}
}

func TestSendCommand_RequestFormat(t *testing.T) {
	fake := newFakeFHEM("", "off")
	client, _, _ := newTestClient(t, fake)

	resp, err := client.SendCommand(context.Background(), "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if !resp.OK() {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}

	q := fake.request(0)
	if q.Get("cmd") != "set psu on" {
		t.Errorf("cmd = %q, want %q", q.Get("cmd"), "set psu on")
	}
	if q.Get("XHR") != "1" {
		t.Errorf("XHR = %q, want 1", q.Get("XHR"))
	}
	if _, ok := q["fwcsrf"]; !ok {
		t.Error("fwcsrf parameter missing")
	}

	h := fake.headers[0]
	if h.Get("Authorization") != "" {
		t.Errorf("Authorization header sent: %q", h.Get("Authorization"))
	}
	if !strings.HasPrefix(h.Get("User-Agent"), "psufhem/") {
		t.Errorf("User-Agent = %q", h.Get("User-Agent"))
	}
}

func TestSendCommand_TrailingSlashAddress(t *testing.T) {
	fake := newFakeFHEM("", "off")
	ts := httptest.NewServer(fake)
	defer ts.Close()

	client := NewClient(settings.NewHolder(testConfig(ts.URL+"/")), WithLogger(zap.NewNop()))
	resp, err := client.SendCommand(context.Background(), "jsonlist2 psu")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 (path must be /fhem)", resp.StatusCode)
	}
}

func TestSendCommand_StaleTokenRetriedOnce(t *testing.T) {
	fake := newFakeFHEM("csrf_abc", "off")
	obs := &recordingObserver{}
	client, _, _ := newTestClient(t, fake, WithObserver(obs))

	resp, err := client.SendCommand(context.Background(), "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if !resp.OK() || !resp.Retried {
		t.Errorf("response = %d retried=%v, want 200 retried=true", resp.StatusCode, resp.Retried)
	}

	if fake.requestCount() != 2 {
		t.Fatalf("requests = %d, want 2", fake.requestCount())
	}
	first, second := fake.request(0), fake.request(1)
	if first.Get("fwcsrf") != "" {
		t.Errorf("first fwcsrf = %q, want empty", first.Get("fwcsrf"))
	}
	if second.Get("fwcsrf") != "csrf_abc" {
		t.Errorf("retry fwcsrf = %q, want csrf_abc", second.Get("fwcsrf"))
	}
	if first.Get("cmd") != second.Get("cmd") {
		t.Errorf("retry cmd = %q, want %q", second.Get("cmd"), first.Get("cmd"))
	}
	if client.Token() != "csrf_abc" {
		t.Errorf("Token() = %q, want csrf_abc", client.Token())
	}

	if obs.refreshes != 1 {
		t.Errorf("token refreshes = %d, want 1", obs.refreshes)
	}
	want := []string{"set 400 false", "set 200 true"}
	if strings.Join(obs.exchanges, ",") != strings.Join(want, ",") {
		t.Errorf("exchanges = %v, want %v", obs.exchanges, want)
	}
}

func TestSendCommand_NoSecondRetry(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set(TokenHeader, fmt.Sprintf("csrf_%d", n))
		w.WriteHeader(http.StatusBadRequest)
	})
	client, _, logs := newTestClient(t, handler)

	resp, err := client.SendCommand(context.Background(), "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v, want soft failure", err)
	}
	if resp.StatusCode != http.StatusBadRequest || !resp.Retried {
		t.Errorf("response = %d retried=%v, want 400 retried=true", resp.StatusCode, resp.Retried)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want exactly 2", calls.Load())
	}
	if client.Token() != "csrf_2" {
		t.Errorf("Token() = %q, want csrf_2", client.Token())
	}
	if logs.FilterMessage("FHEM returned non-success status").FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Errorf("expected one error log for the rejected retry, got %v", logs.All())
	}
}

func TestSendCommand_NoRetryWhenTokenUnchanged(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set(TokenHeader, "csrf_same")
		if n == 1 {
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	client, _, _ := newTestClient(t, handler)
	ctx := context.Background()

	if err := client.LoadToken(ctx); err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	resp, err := client.SendCommand(ctx, "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || resp.Retried {
		t.Errorf("response = %d retried=%v, want 400 without retry", resp.StatusCode, resp.Retried)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want 2", calls.Load())
	}
}

func TestSendCommand_NoRetryWithoutTokenHeader(t *testing.T) {
	fake := newFakeFHEM("csrf_hidden", "off")
	fake.omitToken = true
	client, _, _ := newTestClient(t, fake)

	resp, err := client.SendCommand(context.Background(), "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", resp.StatusCode)
	}
	if fake.requestCount() != 1 {
		t.Errorf("requests = %d, want 1", fake.requestCount())
	}
	if client.Token() != "" {
		t.Errorf("Token() = %q, want unset", client.Token())
	}
}

func TestSendCommand_TokenUpdatedOnFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(TokenHeader, "csrf_after_error")
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _, _ := newTestClient(t, handler)

	resp, err := client.SendCommand(context.Background(), "set psu on")
	if err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", resp.StatusCode)
	}
	if client.Token() != "csrf_after_error" {
		t.Errorf("Token() = %q, want csrf_after_error", client.Token())
	}
}

func TestSendCommand_TokenFollowsServerRotation(t *testing.T) {
	fake := newFakeFHEM("csrf_1", "off")
	client, _, _ := newTestClient(t, fake)
	ctx := context.Background()

	if err := client.TurnOn(ctx); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	fake.setToken("csrf_2")
	if err := client.TurnOff(ctx); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}

	// initial miss + retry, then stale miss + retry
	if fake.requestCount() != 4 {
		t.Errorf("requests = %d, want 4", fake.requestCount())
	}
	if client.Token() != "csrf_2" {
		t.Errorf("Token() = %q, want csrf_2", client.Token())
	}
}

func TestTurnOnTurnOff(t *testing.T) {
	fake := newFakeFHEM("csrf_x", "off")
	client, _, _ := newTestClient(t, fake)
	ctx := context.Background()

	if err := client.TurnOn(ctx); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	on, err := client.State(ctx)
	if err != nil || !on {
		t.Errorf("State() after TurnOn = %v, %v; want true, nil", on, err)
	}

	if err := client.TurnOff(ctx); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	on, err = client.State(ctx)
	if err != nil || on {
		t.Errorf("State() after TurnOff = %v, %v; want false, nil", on, err)
	}

	cmds := make([]string, 0, fake.requestCount())
	for i := 0; i < fake.requestCount(); i++ {
		cmds = append(cmds, fake.request(i).Get("cmd"))
	}
	want := []string{"set psu on", "set psu on", "jsonlist2 psu", "set psu off", "jsonlist2 psu"}
	if strings.Join(cmds, ",") != strings.Join(want, ",") {
		t.Errorf("commands = %v, want %v", cmds, want)
	}
}

func TestTurnOn_CustomValues(t *testing.T) {
	fake := newFakeFHEM("", "aus")
	ts := httptest.NewServer(fake)
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.OnValue = "an"
	cfg.OffValue = "aus"
	client := NewClient(settings.NewHolder(cfg), WithLogger(zap.NewNop()))

	if err := client.TurnOn(context.Background()); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if got := fake.request(0).Get("cmd"); got != "set psu an" {
		t.Errorf("cmd = %q, want %q", got, "set psu an")
	}
	on, err := client.State(context.Background())
	if err != nil || !on {
		t.Errorf("State() = %v, %v; want true, nil", on, err)
	}
}

func TestTurnOn_SoftFailureOnHTTPStatus(t *testing.T) {
	fake := newFakeFHEM("", "off")
	fake.status = http.StatusInternalServerError
	client, _, logs := newTestClient(t, fake)

	if err := client.TurnOn(context.Background()); err != nil {
		t.Errorf("TurnOn() error = %v, want nil for a dispatched request", err)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() == 0 {
		t.Error("expected an error log for HTTP 500")
	}
}

func TestState_Readings(t *testing.T) {
	tests := []struct {
		name        string
		reading     string
		wantOn      bool
		wantErr     error
		wantErrLogs bool
	}{
		{name: "on", reading: "on", wantOn: true},
		{name: "off", reading: "off", wantOn: false},
		{name: "switching on", reading: "set_on", wantOn: false},
		{name: "switching off", reading: "set_off", wantOn: false},
		{name: "unknown", reading: "unplugged", wantOn: false, wantErr: ErrUnknownReading, wantErrLogs: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeFHEM("", tt.reading)
			client, _, logs := newTestClient(t, fake)

			on, err := client.State(context.Background())
			if on != tt.wantOn {
				t.Errorf("State() = %v, want %v", on, tt.wantOn)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("State() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("State() error = %v, want %v", err, tt.wantErr)
			}

			errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).Len()
			if tt.wantErrLogs && errorLogs == 0 {
				t.Error("expected an error log")
			}
			if !tt.wantErrLogs && errorLogs != 0 {
				t.Errorf("unexpected error logs: %v", logs.All())
			}
		})
	}
}

func TestState_TransitionLoggedAtDebug(t *testing.T) {
	fake := newFakeFHEM("", "set_on")
	client, _, logs := newTestClient(t, fake)

	if _, err := client.State(context.Background()); err != nil {
		t.Fatalf("State() error = %v", err)
	}
	entries := logs.FilterMessage("Device is switching").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Errorf("switching log entries = %v, want one debug entry", entries)
	}
}

func TestState_CustomReading(t *testing.T) {
	fake := newFakeFHEM("", "off")
	fake.setBody(`{"Results":[{"Name":"psu","Readings":{"state":{"Value":"off"},"power":{"Value":"an"}}}]}`)
	ts := httptest.NewServer(fake)
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.ReadingName = "power"
	cfg.OnValue = "an"
	cfg.OffValue = "aus"
	client := NewClient(settings.NewHolder(cfg), WithLogger(zap.NewNop()))

	on, err := client.State(context.Background())
	if err != nil || !on {
		t.Errorf("State() = %v, %v; want true, nil", on, err)
	}
}

func TestState_MalformedDocument(t *testing.T) {
	bodies := map[string]string{
		"no results":       `{"Arg":"psu","Results":[],"totalResultsReturned":0}`,
		"results missing":  `{"Arg":"psu"}`,
		"no readings":      `{"Results":[{"Name":"psu"}]}`,
		"reading missing":  `{"Results":[{"Name":"psu","Readings":{"power":{"Value":"on"}}}]}`,
		"value missing":    `{"Results":[{"Name":"psu","Readings":{"state":{"Time":"2024-01-01"}}}]}`,
		"value null":       `{"Results":[{"Name":"psu","Readings":{"state":{"Value":null}}}]}`,
		"results not list": `{"Results":{}}`,
		"readings array":   `{"Results":[{"Readings":[]}]}`,
		"value object":     `{"Results":[{"Name":"psu","Readings":{"state":{"Value":{}}}}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			fake := newFakeFHEM("", "off")
			fake.setBody(body)
			client, _, _ := newTestClient(t, fake)

			on, err := client.State(context.Background())
			if on {
				t.Error("State() = true, want false")
			}
			if err == nil {
				t.Fatal("State() error = nil")
			}
			if !errors.Is(err, ErrMalformedStatusDocument) {
				t.Errorf("State() error = %v, want ErrMalformedStatusDocument", err)
			}
			if errors.Is(err, ErrUnknownReading) {
				t.Error("malformed document must not match ErrUnknownReading")
			}
		})
	}
}

func TestState_OddSiblingReading(t *testing.T) {
	fake := newFakeFHEM("", "off")
	fake.setBody(`{"Results":[{"Name":"psu","Readings":{"state":{"Value":"on"},"attrs":{"Value":["a"]}}}]}`)
	client, _, _ := newTestClient(t, fake)

	on, err := client.State(context.Background())
	if !on || err != nil {
		t.Errorf("State() = %v, %v; want true, nil", on, err)
	}
}

func TestState_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "null", "  \n"} {
		fake := newFakeFHEM("", "on")
		fake.setBody(body)
		client, _, logs := newTestClient(t, fake)

		on, err := client.State(context.Background())
		if on || err != nil {
			t.Errorf("State() with body %q = %v, %v; want false, nil", body, on, err)
		}
		if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
			t.Errorf("body %q: expected one warning, got %v", body, logs.All())
		}
	}
}

func TestState_InvalidJSON(t *testing.T) {
	fake := newFakeFHEM("", "on")
	fake.setBody("<html>FHEM</html>")
	client, _, _ := newTestClient(t, fake)

	on, err := client.State(context.Background())
	if on || !IsParseError(err) {
		t.Errorf("State() = %v, %v; want false, parse error", on, err)
	}
}

func TestState_HTTPError(t *testing.T) {
	fake := newFakeFHEM("", "on")
	fake.status = http.StatusNotFound
	client, _, _ := newTestClient(t, fake)

	on, err := client.State(context.Background())
	if on {
		t.Error("State() = true, want false")
	}
	var fhemErr *Error
	if !errors.As(err, &fhemErr) || fhemErr.Type != ErrTypeHTTP || fhemErr.StatusCode != http.StatusNotFound {
		t.Errorf("State() error = %v, want HTTP 404 error", err)
	}
}

func TestLoadToken_SeedsToken(t *testing.T) {
	fake := newFakeFHEM("csrf_seed", "off")
	client, _, _ := newTestClient(t, fake)
	ctx := context.Background()

	if err := client.LoadToken(ctx); err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if client.Token() != "csrf_seed" {
		t.Fatalf("Token() = %q, want csrf_seed", client.Token())
	}
	if got := fake.request(0).Get("cmd"); got != "jsonlist2 psu" {
		t.Errorf("primer cmd = %q, want jsonlist2 psu", got)
	}

	before := fake.requestCount()
	if err := client.TurnOn(ctx); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if fake.requestCount()-before != 1 {
		t.Errorf("TurnOn after LoadToken sent %d requests, want 1", fake.requestCount()-before)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	address := ts.URL
	ts.Close()

	obs := &recordingObserver{}
	core, logs := observer.New(zapcore.DebugLevel)
	client := NewClient(settings.NewHolder(testConfig(address)), WithLogger(zap.New(core)), WithObserver(obs))

	err := client.TurnOn(context.Background())
	if err == nil {
		t.Fatal("TurnOn() error = nil, want transport error")
	}
	if !IsNetworkError(err) {
		t.Errorf("TurnOn() error = %v, want network error", err)
	}
	if logs.FilterMessage("FHEM request failed").Len() != 1 {
		t.Errorf("expected one failure log, got %v", logs.All())
	}
	if len(obs.errors) != 1 {
		t.Errorf("observed errors = %v, want 1", obs.errors)
	}

	on, err := client.State(context.Background())
	if on || err == nil {
		t.Errorf("State() = %v, %v; want false with error", on, err)
	}
}

func TestClient_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client, _, _ := newTestClient(t, handler, WithTimeout(50*time.Millisecond))

	err := client.TurnOn(context.Background())
	var fhemErr *Error
	if !errors.As(err, &fhemErr) || fhemErr.Type != ErrTypeTimeout {
		t.Errorf("TurnOn() error = %v, want timeout", err)
	}
}

func TestClient_TimeoutOptionOrder(t *testing.T) {
	holder := settings.NewHolder(testConfig("http://fhem.invalid:8083"))

	tests := []struct {
		name string
		opts func(hc *http.Client) []Option
	}{
		{
			name: "timeout before http client",
			opts: func(hc *http.Client) []Option { return []Option{WithTimeout(time.Second), WithHTTPClient(hc)} },
		},
		{
			name: "timeout after http client",
			opts: func(hc *http.Client) []Option { return []Option{WithHTTPClient(hc), WithTimeout(time.Second)} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Timeout: 3 * time.Second}
			client := NewClient(holder, tt.opts(hc)...)

			if hc.Timeout != 3*time.Second {
				t.Errorf("caller's client timeout = %v, want unchanged 3s", hc.Timeout)
			}
			if client.secure != hc || client.insecure != hc {
				t.Error("caller's client not used")
			}
		})
	}

	client := NewClient(holder, WithTimeout(time.Second))
	if client.secure.Timeout != time.Second || client.insecure.Timeout != time.Second {
		t.Errorf("default client timeouts = %v/%v, want 1s", client.secure.Timeout, client.insecure.Timeout)
	}
	if client := NewClient(holder); client.secure.Timeout != DefaultTimeout {
		t.Errorf("default timeout = %v, want %v", client.secure.Timeout, DefaultTimeout)
	}
}

func TestClient_VerifyTLS(t *testing.T) {
	fake := newFakeFHEM("", "on")
	ts := httptest.NewTLSServer(fake)
	defer ts.Close()

	tests := []struct {
		name      string
		verifyTLS bool
		wantErr   bool
	}{
		{name: "verification disabled accepts self-signed", verifyTLS: false, wantErr: false},
		{name: "verification enabled rejects self-signed", verifyTLS: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(ts.URL)
			cfg.VerifyTLS = tt.verifyTLS
			client := NewClient(settings.NewHolder(cfg), WithLogger(zap.NewNop()))

			on, err := client.State(context.Background())
			if tt.wantErr {
				if err == nil || !IsNetworkError(err) {
					t.Errorf("State() error = %v, want network error", err)
				}
				return
			}
			if err != nil || !on {
				t.Errorf("State() = %v, %v; want true, nil", on, err)
			}
		})
	}
}

func TestClient_ConfigurationSwap(t *testing.T) {
	first := newFakeFHEM("", "off")
	second := newFakeFHEM("", "on")
	ts1 := httptest.NewServer(first)
	defer ts1.Close()
	ts2 := httptest.NewServer(second)
	defer ts2.Close()

	holder := settings.NewHolder(testConfig(ts1.URL))
	client := NewClient(holder, WithLogger(zap.NewNop()))
	ctx := context.Background()

	if on, _ := client.State(ctx); on {
		t.Error("State() from first server = true, want false")
	}
	holder.Replace(testConfig(ts2.URL))
	if on, _ := client.State(ctx); !on {
		t.Error("State() from second server = false, want true")
	}
	if first.requestCount() != 1 || second.requestCount() != 1 {
		t.Errorf("requests = %d/%d, want 1/1", first.requestCount(), second.requestCount())
	}
}

func TestClient_ConcurrentCallersShareOneRefresh(t *testing.T) {
	fake := newFakeFHEM("csrf_shared", "off")
	obs := &recordingObserver{}
	client, _, _ := newTestClient(t, fake, WithObserver(obs))

	const callers = 10
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if err := client.TurnOn(context.Background()); err != nil {
				t.Errorf("TurnOn() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if fake.requestCount() != callers+1 {
		t.Errorf("requests = %d, want %d", fake.requestCount(), callers+1)
	}
	if obs.refreshes != 1 {
		t.Errorf("token refreshes = %d, want 1", obs.refreshes)
	}
}

func TestClient_ResetToken(t *testing.T) {
	fake := newFakeFHEM("csrf_r", "off")
	client, _, _ := newTestClient(t, fake)

	if err := client.LoadToken(context.Background()); err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	client.ResetToken()
	if client.Token() != "" {
		t.Errorf("Token() after reset = %q, want unset", client.Token())
	}
}

func TestVerb(t *testing.T) {
	tests := map[string]string{
		"set psu on":    "set",
		"jsonlist2 psu": "jsonlist2",
		"  list ":       "list",
		"":              "",
	}
	for cmd, want := range tests {
		if got := Verb(cmd); got != want {
			t.Errorf("Verb(%q) = %q, want %q", cmd, got, want)
		}
	}
}

func TestResponse_OK(t *testing.T) {
	var nilResp *Response
	if nilResp.OK() {
		t.Error("nil Response reported OK")
	}
	for code, want := range map[int]bool{200: true, 204: true, 302: false, 400: false, 500: false} {
		if got := (&Response{StatusCode: code}).OK(); got != want {
			t.Errorf("OK() for %d = %v, want %v", code, got, want)
		}
	}
}
