package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jamesbarge/postboxd-sub001/internal/config"
)

const userAgent = "postboxd/0.1.0"

// Event names a notification type.
type Event string

const (
	EventAnomalyDetected Event = "anomaly_detected"
	EventReviewQueued    Event = "review_queued"
	EventFilmsMerged     Event = "films_merged"
	EventBatchCompleted  Event = "batch_completed"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

func (p Payload) text(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventAnomalyDetected: cfg.Notifications.Anomalies,
			EventReviewQueued:    cfg.Notifications.Review,
			EventFilmsMerged:     cfg.Notifications.Merges,
			EventBatchCompleted:  true,
			EventError:           true,
			EventTest:            true,
		},
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		sent:        map[string]time.Time{},
		now:         time.Now,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	enabled     map[Event]bool
	dedupWindow time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	if n.duplicate(event, msg) {
		return nil
	}
	return n.send(ctx, msg)
}

// duplicate reports whether msg was already sent inside the dedup window and
// records it otherwise.
func (n *ntfyService) duplicate(event Event, msg message) bool {
	if n.dedupWindow <= 0 || event == EventTest {
		return false
	}
	key := string(event) + "\x00" + msg.title + "\x00" + msg.body
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()
	for k, at := range n.sent {
		if now.Sub(at) >= n.dedupWindow {
			delete(n.sent, k)
		}
	}
	if _, seen := n.sent[key]; seen {
		return true
	}
	n.sent[key] = now
	return false
}

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventAnomalyDetected:
		severity := p.text("severity")
		title := "Postboxd - Source Warning"
		priority := ""
		if severity == "error" {
			title = "Postboxd - Source Unhealthy"
			priority = "high"
		}
		body := fmt.Sprintf("📉 %s: %s listings vs baseline %s (%s%%)",
			p.text("source"), p.text("observed"), p.text("baseline"), p.text("percentChange"))
		if reasons := p.text("reasons"); reasons != "" {
			body += "\n" + reasons
		}
		return message{title: title, body: body, tags: []string{"postboxd", "anomaly", severity}, priority: priority}, true
	case EventReviewQueued:
		return message{
			title: "Postboxd - Review Needed",
			body:  fmt.Sprintf("🔎 Review: %s → %s (confidence %s)", p.text("rawTitle"), p.text("candidateTitle"), p.text("overall")),
			tags:  []string{"postboxd", "review"},
		}, true
	case EventFilmsMerged:
		return message{
			title: "Postboxd - Films Merged",
			body:  fmt.Sprintf("🔗 Merged %s into %s (%s references moved)", p.text("duplicateID"), p.text("canonicalID"), p.text("moved")),
			tags:  []string{"postboxd", "merge"},
		}, true
	case EventBatchCompleted:
		title := "Postboxd - Batch Complete"
		if failed := p.text("failed"); failed != "" && failed != "0" {
			title = "Postboxd - Batch Complete (with errors)"
		}
		return message{
			title: title,
			body: fmt.Sprintf("Resolved %s observations: %s succeeded, %s failed, %s skipped in %s",
				p.text("total"), p.text("succeeded"), p.text("failed"), p.text("skipped"), p.text("duration")),
			tags: []string{"postboxd", "batch", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := p.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := p.text("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{title: "Postboxd - Error", body: builder.String(), tags: []string{"postboxd", "error", "alert"}, priority: "high"}, true
	case EventTest:
		return message{title: "Postboxd - Test", body: "🧪 Notification system test", tags: []string{"postboxd", "test"}, priority: "low"}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compact(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
