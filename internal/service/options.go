package service

// Option configures a Gateway.
type Option func(*Gateway)

// WithSessionIDs replaces the session id generator. Tests use it to force
// collisions and fixed ids.
func WithSessionIDs(gen func() string) Option {
	return func(g *Gateway) {
		g.newSessionID = gen
	}
}
