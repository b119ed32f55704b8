package identity

import "context"

type contextKey string

const signalsKey contextKey = "signals"

// WithSignals stores the request signals in ctx.
func WithSignals(ctx context.Context, s Signals) context.Context {
	return context.WithValue(ctx, signalsKey, s)
}

// SignalsFromContext returns the signals stored by WithSignals.
func SignalsFromContext(ctx context.Context) (Signals, bool) {
	s, ok := ctx.Value(signalsKey).(Signals)
	return s, ok
}
