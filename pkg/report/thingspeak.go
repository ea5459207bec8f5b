package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (

	// DefaultThingSpeakURL denotes the default ThingSpeak update endpoint
	DefaultThingSpeakURL = "https://api.thingspeak.com/update"

	defaultTimeout = 15 * time.Second
)

// ThingSpeak denotes a ThingSpeak channel
type ThingSpeak struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Name returns a short identifier of the sink
func (t *ThingSpeak) Name() string {
	return "thingspeak"
}

// Submit updates the channel with the given fields
func (t *ThingSpeak) Submit(ctx context.Context, fields Fields) error {
	q := url.Values{}
	q.Set("api_key", t.APIKey)
	for _, f := range fields {
		q.Set("field"+strconv.Itoa(f.Slot), strconv.FormatFloat(f.Value, 'f', -1, 64))
	}

	endpoint := t.URL
	if endpoint == "" {
		endpoint = DefaultThingSpeakURL
	}

	_, err := get(ctx, endpoint+"?"+q.Encode(), t.Timeout)
	return err
}

////////////////////////////////////////////////////////////////////////////////

// get performs a GET request and returns the response body. Any non-2xx
// response is reported as ErrStatus
func get(ctx context.Context, uri string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	code, body, errs := fiber.Get(uri).Timeout(timeout).String()
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return body, fmt.Errorf("%w: %d (%s)", ErrStatus, code, body)
	}

	return body, nil
}
