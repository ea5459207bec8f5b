package provision

import (
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
)

// WithEndpoint sets the listen address of the server
func WithEndpoint(endpoint string) func(*Server) {
	return func(s *Server) {
		s.endpoint = endpoint
	}
}

// WithAccessPoint sets the access point to bring up while serving
func WithAccessPoint(ap AccessPoint) func(*Server) {
	return func(s *Server) {
		s.ap = ap
	}
}

// WithSettleDelay sets the delay between a successful submission and shutdown
func WithSettleDelay(d time.Duration) func(*Server) {
	return func(s *Server) {
		s.settleDelay = d
	}
}

// WithLogger sets the logger
func WithLogger(logger monitor.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = logger
	}
}
