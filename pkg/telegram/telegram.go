package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/rs/zerolog"
	tb "gopkg.in/tucnak/telebot.v2"
)

type Bot struct {
	bot      *tb.Bot
	chat     *tb.Chat
	boot     time.Time
	messages chan string
	log      zerolog.Logger
}

func New(token string, chatID int64, log zerolog.Logger) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	chat, err := b.ChatByID(strconv.FormatInt(chatID, 10))
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create chat %d: %w", chatID, err)
	}
	bot := newBot(log)
	bot.bot = b
	bot.chat = chat
	return bot, nil
}

func newBot(log zerolog.Logger) *Bot {
	return &Bot{
		boot:     time.Now(),
		messages: make(chan string, 100),
		log:      log,
	}
}

// HandleChat calls handler with every text message posted in chatID after
// the bot started.
func (b *Bot) HandleChat(chatID int64, skipReply bool, handler func(string)) {
	b.bot.Handle(tb.OnText, func(m *tb.Message) {
		if m.Chat.ID != chatID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		if m.IsReply() && skipReply {
			return
		}
		handler(m.Text)
	})
}

// HandleCommand registers a command only accepted from the control chat.
func (b *Bot) HandleCommand(command string, handler func(string)) {
	b.bot.Handle(fmt.Sprintf("/%s", command), func(m *tb.Message) {
		if m.Chat.ID != b.chat.ID {
			return
		}
		if m.Time().Before(b.boot) {
			return
		}
		handler(m.Payload)
	})
}

func (b *Bot) Run(ctx context.Context) error {
	go b.bot.Start()
	defer b.bot.Stop()
	defer b.bot.Send(b.chat, "🛑 bot stopping")
	var msg string
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg = <-b.messages:
		}
		opts := tb.ModeDefault
		if strings.Contains(msg, "`") {
			opts = tb.ModeMarkdown
		}
		if _, err := b.bot.Send(b.chat, msg, opts); err != nil {
			b.log.Error().Err(err).Msg("couldn't send telegram message")
		}
		select {
		case <-ctx.Done():
			return nil
		// Wait to avoid rate limit errors
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Print logs v and queues it for the control chat. Messages are dropped
// when the queue is full.
func (b *Bot) Print(v ...interface{}) {
	msg := strings.TrimSuffix(fmt.Sprintln(v...), "\n")
	b.log.Info().Msg(msg)
	b.enqueue(msg)
}

func (b *Bot) enqueue(msg string) bool {
	select {
	case b.messages <- msg:
		return true
	default:
		b.log.Warn().Str("message", msg).Msg("telegram queue full, message dropped")
		return false
	}
}

// Publish announces a resolution in the control chat.
func (b *Bot) Publish(ctx context.Context, r signal.Resolution) error {
	if !b.enqueue(Announce(r)) {
		return fmt.Errorf("telegram: queue full, resolution of %s not announced", r.Signal.ID)
	}
	return nil
}

// Announce formats a resolution as a chat message.
func Announce(r signal.Resolution) string {
	emoji, hit := "✅", "take profit"
	if r.Status == signal.Lost {
		emoji, hit = "❌", "stop loss"
	}
	s := r.Signal
	msg := fmt.Sprintf("%s %s %s %s hit at `%s`\nentry %s · tp %s · sl %s",
		emoji, s.Instrument, s.Direction, hit, r.Price.String(), s.EntryPrice, s.TakeProfit, s.StopLoss)
	if s.User != "" {
		msg += fmt.Sprintf("\nby %s", s.User)
	}
	return msg
}
