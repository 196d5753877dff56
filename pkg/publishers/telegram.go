package publishers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramCaptionLimit = 1024
	telegramTextLimit    = 4096
)

// telegramSender is the subset of *tgbotapi.BotAPI the publisher uses.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// telegramPublisher posts the generated image with its caption, or the caption alone
// when no image was generated. The bot is created on first use since dialing calls getMe.
type telegramPublisher struct {
	id     string
	cfg    TelegramPublisherConfig
	log    Logger
	mu     sync.Mutex
	bot    telegramSender
	newBot func(cfg TelegramPublisherConfig) (telegramSender, error)
}

func newTelegramPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Telegram == nil {
		return nil, fmt.Errorf("publisher %q missing telegram configuration", cfg.ID)
	}
	return &telegramPublisher{
		id:     cfg.ID,
		cfg:    *cfg.Telegram,
		log:    ensureLogger(log),
		newBot: dialTelegram,
	}, nil
}

func dialTelegram(cfg TelegramPublisherConfig) (telegramSender, error) {
	endpoint := cfg.APIURL
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return bot, nil
}

func (p *telegramPublisher) ID() string   { return p.id }
func (p *telegramPublisher) Type() string { return TypeTelegram }

func (p *telegramPublisher) sender() (telegramSender, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bot == nil {
		bot, err := p.newBot(p.cfg)
		if err != nil {
			return nil, err
		}
		p.bot = bot
	}
	return p.bot, nil
}

// Publish sends the share to the configured chat.
func (p *telegramPublisher) Publish(ctx context.Context, evt ShareEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := p.sender()
	if err != nil {
		return err
	}

	msg, err := bot.Send(p.chattable(evt))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	p.log.DebugObj("telegram share delivered", "publisher_telegram_delivery", map[string]any{
		"article_id": evt.ArticleID,
		"message_id": msg.MessageID,
	})
	return nil
}

// chattable builds a photo message when an image exists, else a text message.
func (p *telegramPublisher) chattable(evt ShareEvent) tgbotapi.Chattable {
	text := strings.TrimSpace(evt.Caption)
	if text == "" {
		text = evt.Title
	}
	chatID, numeric := parseChatID(p.cfg.ChatID)

	if evt.ImageURL != "" {
		file := tgbotapi.FileURL(evt.ImageURL)
		var photo tgbotapi.PhotoConfig
		if numeric {
			photo = tgbotapi.NewPhoto(chatID, file)
		} else {
			photo = tgbotapi.NewPhotoToChannel(p.cfg.ChatID, file)
		}
		photo.Caption = truncateRunes(text, telegramCaptionLimit)
		return photo
	}

	text = truncateRunes(text, telegramTextLimit)
	if numeric {
		return tgbotapi.NewMessage(chatID, text)
	}
	return tgbotapi.NewMessageToChannel(p.cfg.ChatID, text)
}

func parseChatID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
