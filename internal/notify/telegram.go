package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifier sends alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyNewOpportunity alerts on a scored opportunity. It sends whatever
// score it is given; the engine calls it only for opportunities at the
// notable threshold (score ≥ 70, spec §3).
func (n *Notifier) NotifyNewOpportunity(ctx context.Context, marketID, strategy, side string, score float64) error {
	msg := fmt.Sprintf(
		"<b>New Opportunity</b>\nMarket: <code>%s</code>\nStrategy: %s\nSide: %s\nScore: %.0f",
		marketID, strategy, side, score,
	)
	return n.Send(ctx, msg)
}

// NotifyTradeClosed alerts on a paper trade's resolution.
func (n *Notifier) NotifyTradeClosed(ctx context.Context, marketID, strategy string, netPnL, bankroll float64) error {
	msg := fmt.Sprintf(
		"<b>Trade Closed</b>\nMarket: <code>%s</code>\nStrategy: %s\nNet PnL: %.2f\nBankroll: %.2f",
		marketID, strategy, netPnL, bankroll,
	)
	return n.Send(ctx, msg)
}

// NotifyBusted alerts when the paper-trading bankroll has reached zero.
func (n *Notifier) NotifyBusted(ctx context.Context) error {
	return n.Send(ctx, "<b>BUSTED</b>\nBankroll reached 0. Paper trading halted until reset.")
}
