package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/stretchr/testify/require"
)

var testReadings = monitor.ReadingSet{
	CycleID:            "c1",
	TemperatureClimate: 21.5,
	Humidity:           55.25,
	TemperatureBaro:    22,
	Pressure:           1013.2,
	Mass:               42.125,
	SignalStrength:     -67,
	SignalValid:        true,
	MeanFrequency:      396.3,
}

type capture struct {
	sync.Mutex
	requests []*http.Request
	status   int
}

func (c *capture) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Lock()
		defer c.Unlock()
		c.requests = append(c.requests, r.Clone(context.Background()))
		if c.status != 0 {
			w.WriteHeader(c.status)
		}
		_, _ = w.Write([]byte("1"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (c *capture) last(t *testing.T) url.Values {
	c.Lock()
	defer c.Unlock()
	require.NotEmpty(t, c.requests)
	return c.requests[len(c.requests)-1].URL.Query()
}

func TestFromReadingSet(t *testing.T) {
	fields := FromReadingSet(testReadings)
	require.Len(t, fields, 7)
	for i, f := range fields {
		require.Equal(t, i+1, f.Slot)
	}
	require.Equal(t, -67., fields[5].Value)
	require.Equal(t, 396.3, fields[6].Value)

	disconnected := testReadings
	disconnected.SignalValid = false
	fields = FromReadingSet(disconnected)
	require.Len(t, fields, 6)
	require.Equal(t, 7, fields[5].Slot)
}

func TestThingSpeak(t *testing.T) {
	c := &capture{}
	srv := c.server(t)

	sink := &ThingSpeak{URL: srv.URL + "/update", APIKey: "K1", Timeout: time.Second}
	require.NoError(t, sink.Submit(context.Background(), FromReadingSet(testReadings)))

	q := c.last(t)
	require.Equal(t, "K1", q.Get("api_key"))
	require.Equal(t, "21.5", q.Get("field1"))
	require.Equal(t, "55.25", q.Get("field2"))
	require.Equal(t, "22", q.Get("field3"))
	require.Equal(t, "1013.2", q.Get("field4"))
	require.Equal(t, "42.125", q.Get("field5"))
	require.Equal(t, "-67", q.Get("field6"))
	require.Equal(t, "396.3", q.Get("field7"))
	require.Equal(t, "/update", c.requests[0].URL.Path)
}

func TestThingSpeakErrors(t *testing.T) {
	c := &capture{status: http.StatusBadRequest}
	srv := c.server(t)

	sink := &ThingSpeak{URL: srv.URL, APIKey: "K1", Timeout: time.Second}
	require.ErrorIs(t, sink.Submit(context.Background(), nil), ErrStatus)

	srv.Close()
	require.Error(t, sink.Submit(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sink.Submit(ctx, nil), context.Canceled)
}

func TestCallMeBot(t *testing.T) {
	c := &capture{}
	srv := c.server(t)

	alerter := NewAlerter(&CallMeBot{URL: srv.URL, Phone: "+420123", APIKey: "K2", Timeout: time.Second}, "", nil)
	require.NoError(t, alerter.Alert(context.Background()))

	q := c.last(t)
	require.Equal(t, "+420123", q.Get("phone"))
	require.Equal(t, "K2", q.Get("apikey"))
	require.Equal(t, DefaultAlertText, q.Get("text"))
}

func TestCallMeBotFailure(t *testing.T) {
	c := &capture{status: http.StatusForbidden}
	srv := c.server(t)

	alerter := NewAlerter(&CallMeBot{URL: srv.URL, Timeout: time.Second}, "custom", &monitor.NullLogger{})
	require.ErrorIs(t, alerter.Alert(context.Background()), ErrStatus)
	require.Equal(t, "custom", c.last(t).Get("text"))
}

type countingSink struct {
	name  string
	err   error
	calls int
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) Submit(_ context.Context, _ Fields) error {
	s.calls++
	return s.err
}

func TestReporterContinuesOnFailure(t *testing.T) {
	errSink := errors.New("network unreachable")
	failing := &countingSink{name: "failing", err: errSink}
	working := &countingSink{name: "working"}

	r := NewReporter(nil, failing, working)
	err := r.Report(context.Background(), testReadings)
	require.ErrorIs(t, err, errSink)
	require.True(t, strings.HasPrefix(err.Error(), "failing: "))
	require.Equal(t, 1, failing.calls)
	require.Equal(t, 1, working.calls)

	require.NoError(t, NewReporter(nil, working).Report(context.Background(), testReadings))
}

func TestPushgateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := &Pushgateway{URL: srv.URL, Instance: "hive-1"}
	require.NoError(t, sink.Submit(context.Background(), FromReadingSet(testReadings)))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/metrics/job/hivemon/instance/hive-1", path)
}
