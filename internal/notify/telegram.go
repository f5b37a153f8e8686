package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/report"
	"github.com/wonny/macropulse/pkg/config"
	"github.com/wonny/macropulse/pkg/logger"
)

// MaxMessageRunes is Telegram's text message limit
const MaxMessageRunes = 4096

// Telegram delivers report summaries to one chat
// ⭐ SSOT: 텔레그램 발송은 여기서만
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	catalog        *catalog.Catalog
	maxRetries     int
	retryDelayBase time.Duration
	logger         *logger.Logger
}

// Options tunes delivery
type Options struct {
	Endpoint       string // tgbotapi.APIEndpoint 형식 (테스트용)
	MaxRetries     int
	RetryDelayBase time.Duration
}

// NewTelegram creates the bot over client (pkg/httputil.Client satisfies
// tgbotapi.HTTPClient). An invalid chat id is a *contracts.ConfigError.
func NewTelegram(cfg config.TelegramConfig, client tgbotapi.HTTPClient, cat *catalog.Catalog, opts Options, log *logger.Logger) (*Telegram, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, &contracts.ConfigError{Source: "env", Field: "TELEGRAM_CHAT_ID", Message: "must be an integer", Err: err}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelayBase <= 0 {
		opts.RetryDelayBase = time.Second
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatID,
		catalog:        cat,
		maxRetries:     opts.MaxRetries,
		retryDelayBase: opts.RetryDelayBase,
		logger:         log.WithComponent("telegram"),
	}, nil
}

// Notify implements contracts.Notifier
func (t *Telegram) Notify(ctx context.Context, r *contracts.Report) error {
	return t.send(ctx, Truncate(report.Summary(r, t.catalog), MaxMessageRunes))
}

// send posts a plain-text message with linear-backoff retry
func (t *Telegram) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		// bot.Send는 ctx를 받지 않으므로 시도 전에 확인
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		t.logger.WithError(lastErr).WithField("attempt", i+1).Warn("Telegram send failed")
		if i == t.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

// Truncate cuts s to at most n runes, marking the cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	const marker = "\n…"
	keep := n - len([]rune(marker))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + marker
}
