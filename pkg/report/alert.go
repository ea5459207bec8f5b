package report

import (
	"context"
	"net/url"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
)

const (

	// DefaultCallMeBotURL denotes the default CallMeBot WhatsApp endpoint
	DefaultCallMeBotURL = "https://api.callmebot.com/whatsapp.php"

	// DefaultAlertText denotes the default notification text
	DefaultAlertText = "HIVE ALERT: swarming frequency band detected, the colony may be about to leave!"
)

// Notifier denotes an alert channel
type Notifier interface {

	// Notify sends the given text
	Notify(ctx context.Context, text string) error
}

// CallMeBot denotes a WhatsApp recipient reachable via CallMeBot
type CallMeBot struct {
	URL     string
	Phone   string
	APIKey  string
	Timeout time.Duration
}

// Notify sends the text to the recipient
func (c *CallMeBot) Notify(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("phone", c.Phone)
	q.Set("text", text)
	q.Set("apikey", c.APIKey)

	endpoint := c.URL
	if endpoint == "" {
		endpoint = DefaultCallMeBotURL
	}

	_, err := get(ctx, endpoint+"?"+q.Encode(), c.Timeout)
	return err
}

// Alerter dispatches the fixed anomaly notification
type Alerter struct {
	notifier Notifier
	text     string
	logger   monitor.Logger
}

// NewAlerter instantiates a new Alerter sending text via the notifier
func NewAlerter(n Notifier, text string, logger monitor.Logger) *Alerter {
	if text == "" {
		text = DefaultAlertText
	}
	if logger == nil {
		logger = &monitor.NullLogger{}
	}
	return &Alerter{
		notifier: n,
		text:     text,
		logger:   logger,
	}
}

// Alert sends the notification, failures are logged and returned
func (a *Alerter) Alert(ctx context.Context) error {
	if err := a.notifier.Notify(ctx, a.text); err != nil {
		a.logger.Warnf("failed to send alert notification: %s", err)
		return err
	}
	a.logger.Info("alert notification sent")

	return nil
}
