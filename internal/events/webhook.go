package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Defaults applied by NewWebhookManager.
const (
	DefaultWebhookTimeout    = 5 * time.Second
	DefaultWebhookMaxRetries = 3
)

// retryBase is the delay before the second attempt; it doubles after that.
var retryBase = time.Second

// WebhookConfig describes a single webhook destination.
type WebhookConfig struct {
	Name       string
	URL        string
	Events     []EventType
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
	Template   string // "generic", "slack", "pagerduty"
}

// WebhookManager subscribes to events and delivers HTTP POST
// notifications. Deliveries run in the background; Stop waits for them.
type WebhookManager struct {
	bus    *Bus
	logger *slog.Logger
	hooks  []WebhookConfig
	subIDs []uint64
	wg     sync.WaitGroup
}

// NewWebhookManager creates a webhook manager and subscribes to events.
func NewWebhookManager(bus *Bus, configs []WebhookConfig, logger *slog.Logger) *WebhookManager {
	wm := &WebhookManager{bus: bus, logger: logger}

	for _, cfg := range configs {
		if cfg.Timeout == 0 {
			cfg.Timeout = DefaultWebhookTimeout
		}
		if cfg.MaxRetries == 0 {
			cfg.MaxRetries = DefaultWebhookMaxRetries
		}
		if cfg.Template == "" {
			cfg.Template = "generic"
		}
		wm.hooks = append(wm.hooks, cfg)
	}

	seen := make(map[EventType]bool)
	for _, h := range wm.hooks {
		for _, et := range h.Events {
			if seen[et] {
				continue
			}
			seen[et] = true
			wm.subIDs = append(wm.subIDs, bus.Subscribe(et, wm.dispatch))
		}
	}
	return wm
}

// Stop unsubscribes from all events and waits for pending deliveries.
func (wm *WebhookManager) Stop() {
	for _, id := range wm.subIDs {
		wm.bus.Unsubscribe(id)
	}
	wm.subIDs = nil
	wm.wg.Wait()
}

func (wm *WebhookManager) dispatch(e Event) {
	for _, h := range wm.hooks {
		if !matchesEvent(h, e.Type) {
			continue
		}
		wm.wg.Add(1)
		go func() {
			defer wm.wg.Done()
			wm.deliver(h, e)
		}()
	}
}

func matchesEvent(h WebhookConfig, et EventType) bool {
	for _, t := range h.Events {
		if t == et {
			return true
		}
	}
	return false
}

func (wm *WebhookManager) deliver(h WebhookConfig, e Event) {
	payload := buildPayload(h.Template, e)
	client := &http.Client{Timeout: h.Timeout}

	var lastErr error
	for attempt := range h.MaxRetries {
		if attempt > 0 {
			time.Sleep(retryBase << (attempt - 1))
		}
		if lastErr = sendHTTP(client, h, payload); lastErr == nil {
			wm.logger.Debug("webhook delivered", "name", h.Name, "event", string(e.Type))
			return
		}
	}

	wm.logger.Error("webhook delivery failed",
		"name", h.Name,
		"url", h.URL,
		"attempts", h.MaxRetries,
		"error", lastErr,
	)
}

func sendHTTP(client *http.Client, h WebhookConfig, payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "forkexec-webhook/1.0")
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// buildPayload generates the JSON body for a template.
func buildPayload(template string, e Event) []byte {
	var payload any

	switch template {
	case "slack":
		payload = map[string]string{"text": fmt.Sprintf("[%s] %s", e.Type, formatEventData(e.Data))}

	case "pagerduty":
		payload = map[string]any{
			"event_action": "trigger",
			"payload": map[string]any{
				"summary":   fmt.Sprintf("%s: %s", e.Type, formatEventData(e.Data)),
				"source":    "forkexec",
				"severity":  pagerDutySeverity(e.Type),
				"timestamp": e.Timestamp.Format(time.RFC3339),
			},
		}

	default: // "generic"
		payload = map[string]any{
			"event":     string(e.Type),
			"timestamp": e.Timestamp.Format(time.RFC3339),
			"program":   e.Data["path"],
			"pid":       e.Data["pid"],
			"details":   e.Data,
		}
	}

	data, _ := json.Marshal(payload)
	return data
}

// formatEventData renders data as key=value pairs in key order.
func formatEventData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + data[k]
	}
	return strings.Join(parts, " ")
}

func pagerDutySeverity(et EventType) string {
	switch et {
	case SpawnFailed:
		return "critical"
	case ChildFailed:
		return "error"
	default:
		return "info"
	}
}

// ValidateWebhookTemplate rejects unknown payload templates. Empty means
// generic.
func ValidateWebhookTemplate(s string) error {
	switch s {
	case "", "generic", "slack", "pagerduty":
		return nil
	}
	return fmt.Errorf("unknown webhook template %q (want generic, slack or pagerduty)", s)
}

// ValidateWebhookURL checks that a URL is valid and uses HTTPS unless
// allowInsecure is set or it points at localhost.
func ValidateWebhookURL(rawURL string, allowInsecure bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid webhook URL format: %s", rawURL)
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		isLocal := host == "localhost" || host == "127.0.0.1" || host == "::1"
		if !isLocal && !allowInsecure {
			return fmt.Errorf("webhook URL must use HTTPS: %s (set allow_insecure=true to override)", rawURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("unsupported webhook URL scheme %q", u.Scheme)
	}

	return nil
}
