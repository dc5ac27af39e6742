package query

import "context"

// SessionConfigurator lets an embedding application extend the analytical
// SQL session before a query runs — registering extra table functions,
// setting per-session limits — per spec.md §4.H's "a session-configurator
// hook, defaulting to a no-op, lets the embedding application register
// extra table functions." Grounded on the teacher's plugin-registration
// idiom (internal/github, internal/jira each registering themselves with
// a central router rather than the router special-casing each one).
type SessionConfigurator interface {
	ConfigureSession(ctx context.Context, session *Session) error
}

// NoopConfigurator is the default SessionConfigurator: it does nothing.
type NoopConfigurator struct{}

func (NoopConfigurator) ConfigureSession(ctx context.Context, session *Session) error { return nil }
