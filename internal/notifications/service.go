package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytqueue/internal/config"
)

const userAgent = "ytqueue/0.1"

// Event enumerates notification types.
type Event string

const (
	EventJobQueued      Event = "job_queued"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
		cfg:      cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventQueueStarted, EventQueueCompleted:
		return n.cfg.Queue
	case EventJobQueued, EventJobCompleted:
		return n.cfg.Jobs
	case EventJobFailed:
		return n.cfg.Jobs || n.cfg.Errors
	case EventError:
		return n.cfg.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobQueued:
		return message{
			title: "ytqueue - Job Queued",
			body:  fmt.Sprintf("Queued: %s", payloadString(payload, "label")),
			tags:  []string{"ytqueue", "queue", "added"},
		}, true
	case EventJobCompleted:
		body := fmt.Sprintf("✅ Finished: %s", payloadString(payload, "label"))
		if videoID := payloadString(payload, "videoId"); videoID != "" {
			body = fmt.Sprintf("%s\nhttps://youtu.be/%s", body, videoID)
		}
		return message{
			title: "ytqueue - Job Complete",
			body:  body,
			tags:  []string{"ytqueue", "job", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "ytqueue - Job Failed",
			body:     fmt.Sprintf("❌ %s: %s", payloadString(payload, "label"), orUnknown(payloadString(payload, "error"))),
			tags:     []string{"ytqueue", "job", "failed"},
			priority: "high",
		}, true
	case EventQueueStarted:
		return message{
			title: "ytqueue - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d pending jobs", payloadInt(payload, "count")),
			tags:  []string{"ytqueue", "queue", "started"},
		}, true
	case EventQueueCompleted:
		completed := payloadInt(payload, "completed")
		failed := payloadInt(payload, "failed")
		duration := payloadDuration(payload, "duration")
		if failed == 0 {
			return message{
				title: "ytqueue - Queue Complete",
				body:  fmt.Sprintf("Queue processing complete: %d jobs in %s", completed, duration),
				tags:  []string{"ytqueue", "queue", "completed"},
			}, true
		}
		return message{
			title: "ytqueue - Queue Complete (with errors)",
			body:  fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", completed, failed, duration),
			tags:  []string{"ytqueue", "queue", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(orUnknown(payloadString(payload, "error")))
		return message{
			title:    "ytqueue - Error",
			body:     builder.String(),
			tags:     []string{"ytqueue", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "ytqueue - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"ytqueue", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
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
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
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

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	d, _ := payload[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
