package audit

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Actions recorded by the login flow.
const (
	ActionLogin   = "login"
	ActionLockout = "login_lockout"
	ActionLogout  = "logout"
)

// Event represents an audit log event. It never carries credentials or tokens.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`   // Subject ID or login identifier
	Target    string    `json:"target,omitempty"` // Client IP for logins
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var (
	mu          sync.Mutex
	auditLogger = zerolog.New(os.Stdout).With().Str("log_type", "audit").Logger()
)

// SetOutput redirects audit events to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	auditLogger = zerolog.New(w).With().Str("log_type", "audit").Logger()
}

// Log records an audit event.
func Log(service, action, user, target string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Service:   service,
		Action:    action,
		User:      user,
		Target:    target,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	mu.Lock()
	logger := auditLogger
	mu.Unlock()

	logger.Log().
		Time("timestamp", event.Timestamp).
		Str("service", event.Service).
		Str("action", event.Action).
		Str("user", event.User).
		Str("target", event.Target).
		Bool("success", event.Success).
		Str("error", event.Error).
		Msg("")
}
