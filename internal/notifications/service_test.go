package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jamesbarge/postboxd-sub001/internal/config"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newCapture(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "anomaly error",
			event: notifications.EventAnomalyDetected,
			payload: notifications.Payload{
				"source":        "curzon",
				"severity":      "error",
				"observed":      0,
				"baseline":      "42.0",
				"percentChange": "-100.0",
				"reasons":       "zero observed",
			},
			expectTitle:    "Postboxd - Source Unhealthy",
			expectBody:     "📉 curzon: 0 listings vs baseline 42.0 (-100.0%)\nzero observed",
			expectTags:     "postboxd,anomaly,error",
			expectPriority: "high",
		},
		{
			name:  "review queued",
			event: notifications.EventReviewQueued,
			payload: notifications.Payload{
				"rawTitle":       "Nosferatu (1922)",
				"candidateTitle": "Nosferatu",
				"overall":        "0.62",
			},
			expectTitle: "Postboxd - Review Needed",
			expectBody:  "🔎 Review: Nosferatu (1922) → Nosferatu (confidence 0.62)",
			expectTags:  "postboxd,review",
		},
		{
			name:  "batch completed with errors",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"total": 5, "succeeded": 3, "failed": 1, "skipped": 1, "duration": "2s",
			},
			expectTitle: "Postboxd - Batch Complete (with errors)",
			expectBody:  "Resolved 5 observations: 3 succeeded, 1 failed, 1 skipped in 2s",
			expectTags:  "postboxd,batch,completed",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "monitor", "error": "database is locked"},
			expectTitle:    "Postboxd - Error",
			expectBody:     "❌ Error with monitor: database is locked",
			expectTags:     "postboxd,error,alert",
			expectPriority: "high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newCapture(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tt.event, tt.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			got := requests()
			if len(got) != 1 {
				t.Fatalf("requests = %d, want 1", len(got))
			}
			req := got[0]
			if req.title != tt.expectTitle || req.body != tt.expectBody || req.tags != tt.expectTags || req.priority != tt.expectPriority {
				t.Fatalf("unexpected request %+v", req)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Anomalies = false
	cfg.Notifications.Review = false
	cfg.Notifications.Merges = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventAnomalyDetected,
		notifications.EventReviewQueued,
		notifications.EventFilmsMerged,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceSuppressesRepeatsInsideWindow(t *testing.T) {
	server, requests := newCapture(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.DedupWindowSeconds = 600
	svc := notifications.NewService(&cfg)

	payload := notifications.Payload{"context": "monitor", "error": "boom"}
	for i := 0; i < 3; i++ {
		if err := svc.Publish(context.Background(), notifications.EventError, payload); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"context": "monitor", "error": "other"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := len(requests()); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
