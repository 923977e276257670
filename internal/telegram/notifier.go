// Package telegram posts complaint notifications to an operations chat.
//
// The Notifier registers with the live feed like any other client, so it only
// sees committed events inside its scope.
package telegram

import (
	"fmt"
	"log"
	"strings"

	"fixitfast/backend/internal/localization"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Bot API the notifier uses. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements feed.Client for a single Telegram chat.
type Notifier struct {
	ChatID    int64
	Lang      string
	Bot       Sender
	Localizer *localization.Localizer
	Visible   scope.Scope
	Send      chan models.ComplaintEvent

	done chan struct{}
}

// NewBotNotifier authorises the bot and returns a notifier for chatID that sees
// every complaint.
func NewBotNotifier(token string, chatID int64, l *localization.Localizer, lang string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("INFO: Telegram notifier authorized on account %s", bot.Self.UserName)

	return NewNotifier(bot, chatID, l, lang, scope.Unrestricted()), nil
}

// NewNotifier creates a notifier around an existing sender.
func NewNotifier(bot Sender, chatID int64, l *localization.Localizer, lang string, sc scope.Scope) *Notifier {
	if lang == "" || (l != nil && !l.Has(lang)) {
		lang = "en"
	}
	return &Notifier{
		ChatID:    chatID,
		Lang:      lang,
		Bot:       bot,
		Localizer: l,
		Visible:   sc,
		Send:      make(chan models.ComplaintEvent, 256),
		done:      make(chan struct{}),
	}
}

func (n *Notifier) GetActorID() string                           { return fmt.Sprintf("telegram:%d", n.ChatID) }
func (n *Notifier) Scope() scope.Scope                           { return n.Visible }
func (n *Notifier) GetSendChannel() chan<- models.ComplaintEvent { return n.Send }

// Run starts the write pump.
func (n *Notifier) Run() {
	go n.writePump()
}

// Close stops the write pump once queued events are sent.
func (n *Notifier) Close() {
	close(n.Send)
}

// Done is closed when the write pump has exited.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

func (n *Notifier) writePump() {
	defer close(n.done)

	for ev := range n.Send {
		text := n.Format(ev)
		if text == "" {
			continue
		}

		msg := tgbotapi.NewMessage(n.ChatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := n.Bot.Send(msg); err != nil {
			log.Printf("ERROR: Failed to notify Telegram chat %d about complaint %s: %v", n.ChatID, ev.ComplaintID, err)
		}
	}
	log.Printf("INFO: Telegram notifier for chat %d stopped", n.ChatID)
}

// Format renders ev as a MarkdownV2 message. Events that do not create a complaint
// or change its status render as "".
func (n *Notifier) Format(ev models.ComplaintEvent) string {
	var b strings.Builder

	switch {
	case ev.Type == models.EventCreated:
		b.WriteString(n.Localizer.Format(n.Lang, "notify_created", escape(ev.City), escape(ev.Title)))
	case ev.PreviousStatus != "" && ev.PreviousStatus != ev.Status:
		b.WriteString(n.Localizer.Format(n.Lang, "notify_status",
			escape(ev.Title),
			escape(n.status(ev.PreviousStatus)),
			escape(n.status(ev.Status)),
			escape(ev.City),
		))
	default:
		return ""
	}

	if note := strings.TrimSpace(ev.Note); note != "" && ev.Type != models.EventCreated {
		b.WriteString("\n")
		b.WriteString(n.Localizer.Format(n.Lang, "notify_note", escape(note)))
	}
	return b.String()
}

func (n *Notifier) status(s models.Status) string {
	return n.Localizer.StatusName(n.Lang, s)
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}
