// Package notify delivers operator alerts over Telegram. Delivery is
// fire-and-forget: failures are logged locally and never propagate.
package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "notify")

// Notifier sends messages to a single Telegram chat.
// A nil Notifier (or one without credentials) degrades to log-only.
type Notifier struct {
	client *resty.Client
	chatID string
}

// NewTelegram builds a Notifier for the given bot token and chat id.
// Returns a log-only Notifier when either is empty.
func NewTelegram(token, chatID string) *Notifier {
	if token == "" || chatID == "" {
		return &Notifier{}
	}
	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + token).
		SetTimeout(10 * time.Second)
	return &Notifier{client: client, chatID: chatID}
}

// Send delivers one message, dropping it on any failure.
func (n *Notifier) Send(msg string) {
	if n == nil || n.client == nil {
		log.Info(msg)
		return
	}
	resp, err := n.client.R().
		SetBody(map[string]string{"chat_id": n.chatID, "text": msg}).
		Post("/sendMessage")
	if err != nil {
		log.WithError(err).Warn("telegram send failed")
		return
	}
	if resp.StatusCode() != 200 {
		log.Warnf("telegram send status %d: %s", resp.StatusCode(), resp.String())
	}
}

// Sendf formats and delivers one message.
func (n *Notifier) Sendf(format string, args ...any) {
	n.Send(fmt.Sprintf(format, args...))
}
