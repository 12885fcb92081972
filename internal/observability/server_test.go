// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func startTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startTestServer(t, func() bool { return true })

	addr := server.Addr()
	if addr == "" {
		t.Fatal("server address is empty")
	}

	status, body := get(t, "http://"+addr+"/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}

	// Prometheus exposition format indicators
	if !strings.Contains(body, "# HELP") {
		t.Error("expected Prometheus format with HELP comments")
	}
	if !strings.Contains(body, "# TYPE") {
		t.Error("expected Prometheus format with TYPE comments")
	}
	if !strings.Contains(body, "go_") {
		t.Error("expected go_* metrics")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process_* metrics")
	}

	// Increment custom metrics so they appear in output
	metrics := server.Metrics()
	metrics.RegistrationsTotal.Inc()
	metrics.RequestsTotal.WithLabelValues("/persons", "200").Inc()
	RecordNotificationFailure("enqueue")

	_, body2 := get(t, "http://"+addr+"/metrics")
	if !strings.Contains(body2, "roster_registrations_total") {
		t.Error("expected roster_registrations_total metric")
	}
	if !strings.Contains(body2, "roster_http_requests_total") {
		t.Error("expected roster_http_requests_total metric")
	}
	if !strings.Contains(body2, `roster_notification_failures_total{reason="enqueue"}`) {
		t.Error("expected roster_notification_failures_total metric with reason label")
	}
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startTestServer(t, nil)

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	if strings.TrimSpace(body) != "ok" {
		t.Errorf("expected body 'ok', got %q", body)
	}
}

func TestServer_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		server := startTestServer(t, func() bool { return true })

		status, body := get(t, "http://"+server.Addr()+"/healthz/readiness")
		if status != http.StatusOK {
			t.Errorf("expected status 200, got %d", status)
		}
		if strings.TrimSpace(body) != "ok" {
			t.Errorf("expected body 'ok', got %q", body)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		server := startTestServer(t, func() bool { return false })

		status, body := get(t, "http://"+server.Addr()+"/healthz/readiness")
		if status != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", status)
		}
		if strings.TrimSpace(body) != "not ready" {
			t.Errorf("expected body 'not ready', got %q", body)
		}
	})

	t.Run("nil checker defaults to ready", func(t *testing.T) {
		server := startTestServer(t, nil)

		status, _ := get(t, "http://"+server.Addr()+"/healthz/readiness")
		if status != http.StatusOK {
			t.Errorf("expected status 200, got %d", status)
		}
	})
}

func TestServer_DoubleStart(t *testing.T) {
	server := startTestServer(t, nil)

	if _, err := server.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("stop on a never-started server should be a no-op, got %v", err)
	}
}
