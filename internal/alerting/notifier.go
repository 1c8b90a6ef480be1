package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solarb/internal/pnl"
)

// Notifier delivers trade outcomes out of band.
type Notifier interface {
	NotifyTrade(ctx context.Context, rec pnl.TradeRecord)
}

// TelegramNotifier pushes trade outcomes through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
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

// NotifyTrade sends the outcome via sendMessage. Delivery is best effort:
// failures are logged, never propagated into the trading path.
func (n *TelegramNotifier) NotifyTrade(ctx context.Context, rec pnl.TradeRecord) {
	if err := n.send(ctx, renderMessage(rec)); err != nil {
		n.logger.Error().Err(err).Msg("failed to deliver trade alert")
	}
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
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
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}
	return nil
}

func renderMessage(rec pnl.TradeRecord) string {
	builder := strings.Builder{}
	builder.WriteString("[SolArb Trade]\n")
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", rec.Timestamp.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Pair: %s\n", rec.Pair))
	builder.WriteString(fmt.Sprintf("Buy %s @ %s / Sell %s @ %s\n", rec.BuyVenue, rec.BuyPrice.StringFixed(6), rec.SellVenue, rec.SellPrice.StringFixed(6)))
	builder.WriteString(fmt.Sprintf("Size: $%s\n", rec.SizeUsd.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("PnL: $%s\n", rec.ProfitUsd.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Outcome: %s\n", rec.Outcome))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
