package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"assessmentlinks/internal/security"
)

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	m := NewMiddleware(limiter, false, nil)
	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/completar-cadastro?token=x", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header on 429")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d", i+1, want[i], codes[i])
		}
	}

	// Other clients keep their own budget
	req := httptest.NewRequest(http.MethodGet, "/completar-cadastro?token=x", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rec.Code)
	}
}

func TestRateLimitDisabledWithoutLimiter(t *testing.T) {
	m := NewMiddleware(nil, false, nil)
	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMiddleware(nil, false, zap.New(core))

	handler := m.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/listar-tokens", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("expected status 404 logged, got %v", fields["status"])
	}
	if fields["path"] != "/listar-tokens" {
		t.Fatalf("expected path logged, got %v", fields["path"])
	}
}

func TestRateLimitIgnoresForwardedHeaderWithoutTrustedProxy(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	handler := NewMiddleware(limiter, false, nil).RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/completar-cadastro?token=x", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected rotating X-Forwarded-For to share one budget, got %v", codes)
	}
}

func TestRateLimitUsesForwardedHeaderBehindTrustedProxy(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	handler := NewMiddleware(limiter, true, nil).RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/completar-cadastro?token=x", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected distinct clients behind the proxy to pass, got %d", i+1, rec.Code)
		}
	}
}

func TestLoggingKeepsWriteDeadlineControl(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	admin := &AdminHandler{logger: zap.New(core)}

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin.extendWriteDeadline(w)
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, "5 e-mails enviados.")
	})

	server := httptest.NewUnstartedServer(NewMiddleware(nil, false, nil).Logging(slow))
	server.Config.WriteTimeout = 100 * time.Millisecond
	server.Start()
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/enviar-emails")
	if err != nil {
		t.Fatalf("expected response after the write timeout was lifted, got %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "5 e-mails enviados." {
		t.Fatalf("unexpected response: %d %q", resp.StatusCode, body)
	}
	if n := logs.FilterMessage("could not lift write deadline").Len(); n != 0 {
		t.Fatalf("expected write deadline to be lifted, got %d warnings", n)
	}
}
