package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "stagecap/0.1.0"

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func newNtfyService(endpoint string, timeout time.Duration) *ntfyService {
	return &ntfyService{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) Close() error { return nil }

func format(event Event, payload Payload) (message, bool) {
	base := payload.text("base")
	switch event {
	case EventSessionRecorded:
		body := fmt.Sprintf("🎬 Recorded: %s", base)
		if d := payload.text("duration"); d != "" {
			body += " (" + d + ")"
		}
		if v := payload.text("video"); v != "" {
			body += "\nFile: " + v
		}
		return message{
			title: "Stagecap - Recorded",
			body:  body,
			tags:  []string{"stagecap", "session", "recorded"},
		}, true
	case EventSessionIncomplete:
		reason := payload.text("reason")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "Stagecap - Session Incomplete",
			body:     fmt.Sprintf("⏱️ %s ended early (%s); partial record kept", base, reason),
			tags:     []string{"stagecap", "session", reason},
			priority: "high",
		}, true
	case EventClipsCut:
		ok, failed := payload.number("succeeded"), payload.number("failed")
		title := "Stagecap - Clips Ready"
		body := fmt.Sprintf("✂️ %d clips cut from %s", ok, base)
		if failed > 0 {
			title = "Stagecap - Clips Ready (with errors)"
			body = fmt.Sprintf("✂️ %d clips cut, %d failed from %s", ok, failed, base)
		}
		return message{title: title, body: body, tags: []string{"stagecap", "clip", "completed"}}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if e := payload.text("error"); e != "" {
			b.WriteString(e)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Stagecap - Error",
			body:     b.String(),
			tags:     []string{"stagecap", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Stagecap - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"stagecap", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

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
