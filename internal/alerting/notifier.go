package alerting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"p2pool-monitor/internal/format"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Transition names the state change being reported.
type Transition string

const (
	// SourceFailed is sent when a source goes from healthy to failing.
	SourceFailed Transition = "failed"
	// SourceRecovered is sent when a failing source succeeds again.
	SourceRecovered Transition = "recovered"
)

// Notification describes one source transition.
type Notification struct {
	Source     string
	Transition Transition
	Error      string
	At         time.Time
	// LastUpdated is the time of the last good snapshot, zero if none.
	LastUpdated time.Time
	Failures    int
	Channels    []string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a TelegramNotifier. An empty baseURL means the
// public Bot API.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram rejected message: %s", result.Description)
	}

	n.logger.Info().
		Str("source", note.Source).
		Str("transition", string(note.Transition)).
		Msg("notification sent")
	return nil
}

// LogNotifier writes notifications to the log. It backs the "log" channel.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify never fails.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	ev := n.logger.Warn()
	if note.Transition == SourceRecovered {
		ev = n.logger.Info()
	}
	ev.Str("source", note.Source).
		Str("transition", string(note.Transition)).
		Str("error", note.Error).
		Int("failures", note.Failures).
		Msg(strings.TrimSpace(strings.SplitN(RenderMessage(note), "\n", 2)[0]))
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers to all members even when one fails.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderMessage formats note as plain text.
func RenderMessage(note Notification) string {
	var b strings.Builder
	switch note.Transition {
	case SourceRecovered:
		fmt.Fprintf(&b, "[p2pool] %s recovered\n", note.Source)
	default:
		fmt.Fprintf(&b, "[p2pool] %s failing\n", note.Source)
	}
	fmt.Fprintf(&b, "Time: %s UTC\n", note.At.UTC().Format(time.RFC3339))
	if note.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", note.Error)
	}
	if note.Failures > 0 {
		fmt.Fprintf(&b, "Failures: %d\n", note.Failures)
	}
	fmt.Fprintf(&b, "Last good data: %s\n", lastGood(note))
	if len(note.Channels) > 0 {
		fmt.Fprintf(&b, "Channels: %s\n", strings.Join(note.Channels, ","))
	}
	return b.String()
}

func lastGood(note Notification) string {
	age := format.Since(note.LastUpdated, note.At)
	if note.LastUpdated.IsZero() || age == "just now" {
		return age
	}
	return age + " ago"
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
)
