// Package notify sends newly discovered codes to a Discord channel over
// the REST API.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const messageHeader = "@redeemcodes Newly added redeem codes are:"

// SendError indicates Discord rejected the message.
type SendError struct {
	Status int
	Body   string
}

func (e SendError) Error() string {
	return fmt.Sprintf("discord returned status %d: %s", e.Status, e.Body)
}

// Discord posts messages to a single channel as a bot user.
type Discord struct {
	http    *resty.Client
	channel string
}

// NewDiscord builds a client for the given bot token and channel ID.
// apiBase is the REST root, e.g. https://discord.com/api/v10.
func NewDiscord(apiBase, token, channel string, timeout time.Duration) *Discord {
	client := resty.New()
	client.SetBaseURL(apiBase)
	client.SetHeader("Authorization", "Bot "+token)
	client.SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Discord{
		http:    client,
		channel: channel,
	}
}

// Client exposes the underlying resty client, mainly for transport mocking.
func (d *Discord) Client() *resty.Client {
	return d.http
}

// SendAddedCodes posts the formatted announcement. Sending an empty list
// is a no-op: no message means no new codes.
func (d *Discord) SendAddedCodes(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"content": FormatMessage(codes)}).
		Post("/channels/" + d.channel + "/messages")
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	if resp.IsError() {
		return SendError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// FormatMessage renders the announcement: a header line followed by one
// bulleted line per code.
func FormatMessage(codes []string) string {
	const delimiter = "\n  • "
	return messageHeader + delimiter + strings.Join(codes, delimiter)
}
