package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one USSD turn.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	MSISDN    string    // caller's mobile number, already masked
	SessionID string    // aggregator session id
	Shortcode string    // dialled shortcode
	Menu      string    // current/resolved menu node name
	ClientIP  string    // aggregator/client IP address (without port)
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		MSISDN:    lc.MSISDN,
		SessionID: lc.SessionID,
		Shortcode: lc.Shortcode,
		Menu:      lc.Menu,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithTurn returns a copy with the turn identity fields set.
func (lc *LogContext) WithTurn(msisdn, sessionID, shortcode string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.MSISDN = msisdn
		clone.SessionID = sessionID
		clone.Shortcode = shortcode
	}
	return clone
}

// WithMenu returns a copy with the menu node set.
func (lc *LogContext) WithMenu(menu string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Menu = menu
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
