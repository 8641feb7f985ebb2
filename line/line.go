/*
Package line adapts the LINE Messaging API to the bot's Command/Reply model.

PURPOSE:
  The webhook handler verifies the request signature, extracts text messages,
  resolves the sender's display name, hands a Command to the bot dispatcher,
  and replies with the dispatcher's answer. Client also implements
  notify.Pusher for unsolicited pushes.

SEE ALSO:
  - bot: the command dispatcher this package feeds
  - notify: the push dispatcher that uses Client as its Pusher
*/
package line

import (
	"context"
	"log"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/Natts95/line-checkin-bot/bot"
	"github.com/Natts95/line-checkin-bot/clock"
)

// Handler is the bot surface the webhook needs.
type Handler interface {
	Handle(ctx context.Context, cmd bot.Command) bot.Reply
}

// Client wraps the LINE SDK client.
type Client struct {
	sdk   *linebot.Client
	clock clock.Clock
}

func NewClient(channelSecret, channelToken string, clk clock.Clock) (*Client, error) {
	sdk, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, err
	}
	return &Client{sdk: sdk, clock: clk}, nil
}

// =============================================================================
// WEBHOOK
// =============================================================================

// Webhook returns the HTTP handler for LINE's webhook calls. Non-text events
// are ignored; each text message becomes one Command.
func (c *Client) Webhook(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := c.sdk.ParseRequest(r)
		if err != nil {
			if err == linebot.ErrInvalidSignature {
				w.WriteHeader(http.StatusBadRequest)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		ctx := r.Context()
		for _, event := range events {
			if event.Type != linebot.EventTypeMessage || event.Source == nil {
				continue
			}
			msg, ok := event.Message.(*linebot.TextMessage)
			if !ok {
				continue
			}

			cmd := bot.Command{
				PersonID:    event.Source.UserID,
				DisplayName: c.displayName(ctx, event.Source.UserID),
				Text:        msg.Text,
				Now:         c.clock.Now(),
			}

			reply := h.Handle(ctx, cmd)
			if err := c.reply(ctx, event.ReplyToken, reply); err != nil {
				log.Printf("[Line] reply to %s failed: %v", cmd.PersonID, err)
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

// displayName fetches the sender's profile name. An empty name is fine; the
// roster falls back to the id.
func (c *Client) displayName(ctx context.Context, userID string) string {
	profile, err := c.sdk.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		log.Printf("[Line] profile lookup for %s failed: %v", userID, err)
		return ""
	}
	return profile.DisplayName
}

func (c *Client) reply(ctx context.Context, token string, reply bot.Reply) error {
	msgs := toMessages(reply)
	if len(msgs) == 0 {
		return nil
	}
	_, err := c.sdk.ReplyMessage(token, msgs...).WithContext(ctx).Do()
	return err
}

// =============================================================================
// PUSH
// =============================================================================

// Push implements notify.Pusher.
func (c *Client) Push(ctx context.Context, to, text string) error {
	_, err := c.sdk.PushMessage(to, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return err
}

// =============================================================================
// MESSAGE MAPPING
// =============================================================================

func toMessages(reply bot.Reply) []linebot.SendingMessage {
	if reply.Menu != nil {
		actions := make([]linebot.TemplateAction, 0, len(reply.Menu.Options))
		for _, opt := range reply.Menu.Options {
			actions = append(actions, linebot.NewMessageAction(opt.Label, opt.Text))
		}
		template := linebot.NewButtonsTemplate("", "", reply.Menu.Title, actions...)
		return []linebot.SendingMessage{linebot.NewTemplateMessage(reply.Menu.Title, template)}
	}
	if reply.Text == "" {
		return nil
	}
	return []linebot.SendingMessage{linebot.NewTextMessage(reply.Text)}
}
