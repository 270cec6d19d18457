package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/cache"
	"github.com/iwvelando/heloc-forecast/internal/store"
)

const simulateJSON = `{
  "simulation": {"startDate": "2026-01"},
  "scenarios": [{
    "name": "HELOC strategy",
    "active": true,
    "mortgage": {"principal": 250000, "annualInterestRate": 0.065, "termInMonths": 240, "monthlyPayment": %PAYMENT%},
    "heloc": {"limit": %LIMIT%, "annualInterestRate": 0.045, "availableCredit": 100000},
    "incomes": [{"name": "salary", "amount": 6500, "active": true}],
    "expenses": [{"name": "living", "amount": 5000, "active": true}]
  }]
}`

const forecastYAML = `
simulation:
  startDate: "2026-01"
scenarios:
  - name: Uploaded
    active: true
    mortgage:
      principal: 250000
      annualInterestRate: 0.065
      termInMonths: 240
      monthlyPayment: 1800
    incomes:
      - name: salary
        amount: 6500
        active: true
    expenses:
      - name: living
        amount: 5000
        active: true
`

func simulateBody(payment, limit string) string {
	return strings.NewReplacer("%PAYMENT%", payment, "%LIMIT%", limit).Replace(simulateJSON)
}

func newTestHandler(t *testing.T, cfg *Config, opts ...Option) *Handler {
	t.Helper()
	if cfg == nil {
		var err error
		cfg, err = LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		cfg.RateLimitPerMinute = -1
	}
	h := NewHandler(zap.NewNop(), cfg, "1.2.3", opts...)
	t.Cleanup(h.Close)
	return h
}

func postSimulate(h http.Handler, body, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/simulate"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandleSimulateSuccess(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := postSimulate(h, simulateBody("1800", "100000"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp forecastResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	payoff := resp.Results[0].Result.Summary.StrategyPayoffMonths
	if payoff < 90 || payoff > 96 {
		t.Errorf("StrategyPayoffMonths = %d, want within [90, 96]", payoff)
	}
	if !strings.HasPrefix(resp.CSV, "scenario,track") {
		t.Errorf("unexpected CSV header %q", strings.SplitN(resp.CSV, "\n", 2)[0])
	}
	if resp.Duration == "" {
		t.Error("expected duration in response")
	}
	if len(resp.RunIDs) != 0 {
		t.Errorf("runs should not be saved without save=true")
	}
}

func TestHandleSimulateErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		code      string
		wantField string
	}{
		{"non amortizing", simulateBody("1000", "100000"), http.StatusBadRequest, codeNonAmortizing, ""},
		{"invalid input", simulateBody("1800", "-5"), http.StatusBadRequest, codeInvalidInput, "heloc.limit"},
		{"malformed json", `{"scenarios": [`, http.StatusBadRequest, codeInvalidConfig, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, nil)
			rr := postSimulate(h, tt.body, "")
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandleSimulateTimeout(t *testing.T) {
	h := newTestHandler(t, nil)
	h.timeout = time.Nanosecond

	rr := postSimulate(h, simulateBody("1800", "100000"), "")
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected status 504, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeError(t, rr); resp.Code != codeTimeout {
		t.Errorf("code = %q, want %q", resp.Code, codeTimeout)
	}
}

func TestHandleSimulateRateLimited(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.RateLimitPerMinute = 1
	h := newTestHandler(t, cfg)

	if rr := postSimulate(h, simulateBody("1800", "100000"), ""); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	rr := postSimulate(h, simulateBody("1800", "100000"), "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != codeRateLimited {
		t.Errorf("code = %q, want %q", resp.Code, codeRateLimited)
	}
}

func TestHandleSimulateUsesCache(t *testing.T) {
	h := newTestHandler(t, nil, WithCache(cache.NewMemory(time.Hour)))

	for i, wantCached := range []bool{false, true} {
		rr := postSimulate(h, simulateBody("1800", "100000"), "")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
		var resp forecastResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Results[0].Cached != wantCached {
			t.Errorf("request %d: cached = %v, want %v", i, resp.Results[0].Cached, wantCached)
		}
	}
}

func multipartRequest(t *testing.T, filename, contents string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(contents)); err != nil {
			t.Fatalf("failed to write form data: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleForecast(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		contents   string
		uploadSize int64
		status     int
	}{
		{"yaml upload", "config.yaml", forecastYAML, 0, http.StatusOK},
		{"no extension", "config", forecastYAML, 0, http.StatusOK},
		{"missing file", "", "", 0, http.StatusBadRequest},
		{"malformed yaml", "config.yaml", "scenarios: [", 0, http.StatusBadRequest},
		{"too large", "config.yaml", forecastYAML, 64, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			cfg.SetUploadSizeBytes(tt.uploadSize)
			h := newTestHandler(t, cfg)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, multipartRequest(t, tt.filename, tt.contents))
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp forecastResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Results) != 1 || resp.Results[0].Name != "Uploaded" {
				t.Errorf("unexpected results %+v", resp.Results)
			}
		})
	}
}

func TestRunHistory(t *testing.T) {
	runs, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })
	h := newTestHandler(t, nil, WithRunStore(runs))

	rr := postSimulate(h, simulateBody("1800", "100000"), "?save=true")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp forecastResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.RunIDs) != 1 {
		t.Fatalf("expected 1 saved run, got %d", len(resp.RunIDs))
	}
	id := resp.RunIDs[0]

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"list", "/api/runs", http.StatusOK},
		{"list limited", "/api/runs?limit=1", http.StatusOK},
		{"bad limit", "/api/runs?limit=x", http.StatusBadRequest},
		{"get", "/api/runs/" + id, http.StatusOK},
		{"unknown", "/api/runs/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
	var run store.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}
	if run.Scenario != "HELOC strategy" || len(run.Strategy) != resp.Results[0].Result.Summary.StrategyPayoffMonths {
		t.Errorf("unexpected run %s with %d strategy rows", run.Scenario, len(run.Strategy))
	}
}

func TestRunHistoryUnavailable(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"list", httptest.NewRequest(http.MethodGet, "/api/runs", nil)},
		{"get", httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)},
		{"save", httptest.NewRequest(http.MethodPost, "/api/simulate?save=true", strings.NewReader(simulateBody("1800", "100000")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, tt.req)
			if rr.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected status 503, got %d", rr.Code)
			}
			if resp := decodeError(t, rr); resp.Code != codeUnavailable {
				t.Errorf("code = %q, want %q", resp.Code, codeUnavailable)
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	h := newTestHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if payload["version"] != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", payload["version"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/version", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	steps := []struct {
		advance time.Duration
		client  string
		want    bool
	}{
		{0, "a", true},
		{0, "a", true},
		{0, "a", false},
		{0, "b", true},
		{time.Minute, "a", true},
	}
	for i, s := range steps {
		now = now.Add(s.advance)
		if got := rl.Allow(s.client); got != s.want {
			t.Errorf("step %d: Allow(%s) = %v, want %v", i, s.client, got, s.want)
		}
	}

	rl.Stop()
}
