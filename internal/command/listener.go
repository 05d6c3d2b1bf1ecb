// Package command long-polls Telegram for operator commands and feeds them
// to the orchestrator over a channel. Only the orchestrator mutates run
// state; this package just translates messages.
package command

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "command")

// Command is one recognized operator instruction.
type Command int

const (
	CmdStop Command = iota
	CmdStatus
	CmdScalpOn
	CmdScalpOff
	CmdSwingOn
	CmdSwingOff
)

const (
	pollInterval    = 2 * time.Second
	longPollTimeout = 5 // seconds, passed to getUpdates
)

// Listener polls the Telegram getUpdates endpoint with an increasing
// cursor so no processed update is ever re-delivered.
type Listener struct {
	client *resty.Client
	chatID string
	offset int64
}

// NewListener builds a listener for one bot token and authorized chat.
// Returns nil when unconfigured; the orchestrator then runs without an
// operator channel.
func NewListener(token, chatID string) *Listener {
	if token == "" || chatID == "" {
		return nil
	}
	return &Listener{
		client: resty.New().
			SetBaseURL("https://api.telegram.org/bot" + token).
			SetTimeout(time.Duration(longPollTimeout+10) * time.Second),
		chatID: chatID,
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run polls until ctx is done, pushing recognized commands onto out.
// Poll failures are logged and retried on the next cycle.
func (l *Listener) Run(ctx context.Context, out chan<- Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}

		for _, cmd := range l.poll(ctx) {
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *Listener) poll(ctx context.Context) []Command {
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.FormatInt(l.offset+1, 10)).
		SetQueryParam("timeout", strconv.Itoa(longPollTimeout)).
		Get("/getUpdates")
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("getUpdates failed")
		}
		return nil
	}
	if resp.StatusCode() != 200 {
		log.Warnf("getUpdates status %d", resp.StatusCode())
		return nil
	}

	var body updatesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil || !body.OK {
		return nil
	}

	var cmds []Command
	for _, up := range body.Result {
		if up.UpdateID > l.offset {
			l.offset = up.UpdateID
		}
		// Only the authorized operator identity is heard.
		if strconv.FormatInt(up.Message.Chat.ID, 10) != l.chatID {
			continue
		}
		if cmd, ok := parse(up.Message.Text); ok {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// parse maps operator text to a command. Unrecognized text is ignored.
func parse(text string) (Command, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/stop":
		return CmdStop, true
	case "/status":
		return CmdStatus, true
	case "/scalpon":
		return CmdScalpOn, true
	case "/scalpoff":
		return CmdScalpOff, true
	case "/swingon":
		return CmdSwingOn, true
	case "/swingoff":
		return CmdSwingOff, true
	}
	return 0, false
}
