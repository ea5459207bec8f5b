// Package provision implements the provisioning mode of the node: a local
// access point serving a form that collects the node configuration
package provision

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fako1024/hivemon/pkg/config"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/gofiber/fiber/v2"
)

const (

	// DefaultEndpoint denotes the default listen address of the provisioning server
	DefaultEndpoint = ":80"

	defaultSettleDelay = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Store denotes a persistent configuration store
type Store interface {
	Save(cfg config.Configuration) error
}

// Server denotes the provisioning web server
type Server struct {
	endpoint    string
	store       Store
	ap          AccessPoint
	settleDelay time.Duration
	logger      monitor.Logger

	router *fiber.App
	done   chan config.Configuration
}

// New instantiates a new provisioning Server persisting to the given store,
// executing functional options, if any
func New(store Store, options ...func(*Server)) *Server {
	s := &Server{
		endpoint:    DefaultEndpoint,
		store:       store,
		ap:          NopAccessPoint{},
		settleDelay: defaultSettleDelay,
		logger:      &monitor.NullLogger{},
		router: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		done: make(chan config.Configuration, 1),
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(s)
	}

	// Setup routes
	s.router.Post("/", s.handleSubmit())
	s.router.All("/*", s.handleForm())

	return s
}

// Run brings up the access point and serves the form until a configuration was
// submitted and persisted (or the context is done). The caller is expected to
// restart the node afterwards
func (s *Server) Run(ctx context.Context) (config.Configuration, error) {
	if err := s.ap.Up(ctx); err != nil {
		return config.Configuration{}, fmt.Errorf("failed to bring up access point: %w", err)
	}
	defer func() {
		if err := s.ap.Down(); err != nil {
			s.logger.Warnf("failed to bring down access point: %s", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.router.Listen(s.endpoint)
	}()
	s.logger.Infof("provisioning server listening on %s", s.endpoint)

	var (
		cfg config.Configuration
		err error
	)
	select {
	case cfg = <-s.done:

		// Give the client a moment to receive the confirmation
		time.Sleep(s.settleDelay)
	case err = <-errChan:
		return config.Configuration{}, fmt.Errorf("provisioning server failed: %w", err)
	case <-ctx.Done():
		err = ctx.Err()
	}

	if serr := s.router.ShutdownWithTimeout(shutdownTimeout); serr != nil {
		s.logger.Warnf("failed to shut down provisioning server: %s", serr)
	}

	return cfg, err
}

// formValues returns a lookup of the submitted fields. The body is parsed as
// URL-encoded form regardless of the announced content type
func (s *Server) formValues(c *fiber.Ctx) func(key string) string {
	if c.Request().PostArgs().Len() > 0 {
		return func(key string) string {
			return c.FormValue(key)
		}
	}

	values, err := url.ParseQuery(string(c.Body()))
	if err != nil {
		s.logger.Debugf("ignoring malformed parts of submission: %s", err)
	}
	return values.Get
}

// Handler returns the underlying fiber app (e.g. for testing)
func (s *Server) Handler() *fiber.App {
	return s.router
}

////////////////////////////////////////////////////////////////////////////////

func (s *Server) handleForm() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(formPage)
	}
}

func (s *Server) handleSubmit() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {

		// Missing fields silently default to empty values
		cfg := config.FromValues(s.formValues(c))
		s.logger.Infof("received configuration: %s", cfg)

		if err := s.store.Save(cfg); err != nil {
			s.logger.Errorf("failed to persist configuration: %s", err)
			return c.Status(fiber.StatusInternalServerError).SendString("failed to store configuration")
		}

		select {
		case s.done <- cfg:
		default:
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(confirmationPage)
	}
}
