package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// USSD Turn Identification
	// ========================================================================
	KeyMSISDN    = "msisdn"     // Caller's mobile number, masked before logging
	KeySessionID = "session_id" // Aggregator-issued session identifier
	KeyShortcode = "shortcode"  // Dialled shortcode
	KeyMenu      = "menu"       // Current or resolved menu node name
	KeyAction    = "action"     // Frame action: con or end
	KeyClientIP  = "client_ip"  // Aggregator/client IP address

	// ========================================================================
	// Upstream (core-banking backend)
	// ========================================================================
	KeyService     = "service"      // FORMID / service name sent upstream
	KeyUpstreamURL = "upstream_url" // Upstream base URL (never the full query string)
	KeyStatus      = "status"       // Upstream status code
	KeyStatusMsg   = "status_msg"   // Human-readable status message
	KeyCacheHit    = "cache_hit"    // Whether an upstream response was served from cache
	KeyRetry       = "retry"        // Whether the caller should retry

	// ========================================================================
	// Session Store
	// ========================================================================
	KeyStoreKey     = "store_key"    // Composite session/slot key
	KeySlot         = "slot"         // Slot name
	KeyTransactions = "transactions" // transactionCount on the session
	KeyTTLSeconds   = "ttl_seconds"  // TTL applied to a KV write
	KeyElapsed      = "elapsed_seconds"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric/string error code
	KeyModule     = "module"      // Action module name (pin, balance, statement, airtime)
	KeyHandler    = "handler"     // Registered handler id, e.g. "pin.processPinOrForgot"
	KeyRequestID  = "request_id"  // chi request id
)

// ----------------------------------------------------------------------------
// Field constructors
// ----------------------------------------------------------------------------

// TraceIDAttr returns a slog.Attr for OpenTelemetry trace ID.
func TraceIDAttr(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanIDAttr returns a slog.Attr for OpenTelemetry span ID.
func SpanIDAttr(id string) slog.Attr { return slog.String(KeySpanID, id) }

// MSISDN returns a slog.Attr for a masked MSISDN.
func MSISDN(masked string) slog.Attr { return slog.String(KeyMSISDN, masked) }

// SessionID returns a slog.Attr for a session identifier.
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// Shortcode returns a slog.Attr for the dialled shortcode.
func Shortcode(code string) slog.Attr { return slog.String(KeyShortcode, code) }

// Menu returns a slog.Attr for a menu node name.
func Menu(name string) slog.Attr { return slog.String(KeyMenu, name) }

// Action returns a slog.Attr for a frame action (con/end).
func Action(action string) slog.Attr { return slog.String(KeyAction, action) }

// ClientIP returns a slog.Attr for client IP address.
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// Service returns a slog.Attr for the upstream service/FORMID.
func Service(name string) slog.Attr { return slog.String(KeyService, name) }

// Status returns a slog.Attr for an upstream status code.
func Status(code string) slog.Attr { return slog.String(KeyStatus, code) }

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr { return slog.String(KeyStatusMsg, msg) }

// CacheHit returns a slog.Attr for an upstream cache hit indicator.
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// Retry returns a slog.Attr indicating whether the caller should retry.
func Retry(retry bool) slog.Attr { return slog.Bool(KeyRetry, retry) }

// StoreKey returns a slog.Attr for a composite session/slot key.
func StoreKey(key string) slog.Attr { return slog.String(KeyStoreKey, key) }

// Slot returns a slog.Attr for a slot name.
func Slot(name string) slog.Attr { return slog.String(KeySlot, name) }

// Transactions returns a slog.Attr for the session transaction count.
func Transactions(n int) slog.Attr { return slog.Int(KeyTransactions, n) }

// TTLSeconds returns a slog.Attr for a KV TTL.
func TTLSeconds(seconds int) slog.Attr { return slog.Int(KeyTTLSeconds, seconds) }

// Elapsed returns a slog.Attr for elapsed seconds since session creation.
func Elapsed(seconds float64) slog.Attr { return slog.Float64(KeyElapsed, seconds) }

// DurationMsAttr returns a slog.Attr for duration in milliseconds.
func DurationMsAttr(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/string error code.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Module returns a slog.Attr for an action module name.
func Module(name string) slog.Attr { return slog.String(KeyModule, name) }

// Handler returns a slog.Attr for a registered handler id.
func Handler(id string) slog.Attr { return slog.String(KeyHandler, id) }

// RequestID returns a slog.Attr for a request id.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }
