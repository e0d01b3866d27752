// Package telegram sends anomaly reports via the Telegram Bot API and answers
// on-demand checks from chat commands.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/tempwatch/internal/checker"
	"github.com/rewired-gh/tempwatch/internal/logger"
	"github.com/rewired-gh/tempwatch/internal/models"
	"github.com/rewired-gh/tempwatch/internal/weather"
)

// Checker runs a live check for a city.
type Checker interface {
	Check(ctx context.Context, city string) (*models.Report, error)
	Cities() []string
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for updates and answers
// /ping, /cities and /check <city>. It returns immediately; the goroutine
// stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, chk Checker) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, chk, update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, chk Checker, msg *tgbotapi.Message) {
	text := replyFor(ctx, chk, msg.Command(), msg.CommandArguments())
	if text == "" {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = "MarkdownV2"
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
	}
}

// replyFor builds the MarkdownV2 answer to a command. Unknown commands get no reply.
func replyFor(ctx context.Context, chk Checker, command, args string) string {
	switch command {
	case "ping":
		return "Pong"
	case "cities":
		return formatCities(chk.Cities())
	case "check":
		city := strings.TrimSpace(args)
		if city == "" {
			return escapeMarkdownV2("Usage: /check <city>")
		}
		report, err := chk.Check(ctx, city)
		if err != nil {
			return formatCheckError(city, err)
		}
		return formatReport(report)
	}
	return ""
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendReport sends the verdict of a live check.
func (c *Client) SendReport(report *models.Report) error {
	return c.sendMarkdownV2(formatReport(report))
}

// SendError sends a failed check notification.
func (c *Client) SendError(city string, checkErr error) error {
	return c.sendMarkdownV2(formatCheckError(city, checkErr))
}

func formatReport(r *models.Report) string {
	var b strings.Builder

	if r.Verdict.IsAnomalous {
		fmt.Fprintf(&b, "🚨 *%s: temperature is anomalous*\n\n", escapeMarkdownV2(r.City))
	} else {
		fmt.Fprintf(&b, "✅ *%s: temperature is normal*\n\n", escapeMarkdownV2(r.City))
	}

	fmt.Fprintf(&b, "🌡 Current: *%s*\n", escapeMarkdownV2(fmt.Sprintf("%.2f °C", r.Current.TemperatureC)))
	fmt.Fprintf(&b, "📅 Season: %s\n", escapeMarkdownV2(r.Verdict.SeasonUsed.String()))
	fmt.Fprintf(&b, "📏 Normal range: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f … %.2f °C (median %.2f)",
		r.Verdict.ThresholdLow, r.Verdict.ThresholdHigh, r.Verdict.Median)))

	if s := r.Summary; s != nil {
		fmt.Fprintf(&b, "\n📊 Historical \\(smoothed\\): %s\n", escapeMarkdownV2(fmt.Sprintf("median %.2f, min %.2f, max %.2f °C",
			s.MedianTemp, s.MinTemp, s.MaxTemp)))
	}

	return b.String()
}

func formatCheckError(city string, err error) string {
	var fe *weather.FetchError
	var reason string
	switch {
	case errors.Is(err, checker.ErrUnknownCity):
		reason = "no historical data for this city"
	case errors.Is(err, models.ErrNoSeasonalData):
		reason = "no historical data for the current season"
	case errors.As(err, &fe) && fe.Message != "":
		reason = fe.Message
	default:
		reason = err.Error()
	}
	return fmt.Sprintf("⚠️ *Check failed for %s*\n`%s`", escapeMarkdownV2(city), escapeMarkdownV2(reason))
}

func formatCities(cities []string) string {
	if len(cities) == 0 {
		return escapeMarkdownV2("No cities loaded.")
	}
	escaped := make([]string, len(cities))
	for i, c := range cities {
		escaped[i] = "• " + escapeMarkdownV2(c)
	}
	return "*Cities*\n" + strings.Join(escaped, "\n")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
