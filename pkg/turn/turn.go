// Package turn implements C8, the per-request orchestration that ties the
// session store (C2), the menu engine (C7) and the upstream client (C4)
// together into one USSD turn: fetch-or-create the session, resolve the
// current menu, render or process it, persist the outcome, and emit a
// frame.
package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/metrics"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

// ErrInvalidRequest is the only error that may surface as a non-200 to the
// aggregator; every other failure degrades to a well-formed frame instead.
var ErrInvalidRequest = errors.New("turn: missing msisdn or sessionId")

// Request is one inbound USSD turn.
type Request struct {
	MSISDN    string
	SessionID string
	Shortcode string
	Input     string
}

// Frame is the outbound USSD response: "{Action} {Message}".
type Frame struct {
	Action  string // "con" or "end"
	Message string
}

// String renders the frame exactly as the aggregator expects it on the wire.
func (f Frame) String() string {
	return f.Action + " " + f.Message
}

// Handler orchestrates one turn at a time against a shared session store,
// menu engine and upstream client. It holds no per-turn state of its own.
type Handler struct {
	sessions *session.Store
	engine   *menu.Engine
	upstream *upstream.Client
	ttl      time.Duration
	metrics  *metrics.TurnMetrics
}

// New returns a turn handler wired to the given session store, menu engine
// and upstream client. ttl is the maximum session age, measured from the
// session's start anchor; a turn arriving after it starts a fresh session
// instead of resuming.
func New(sessions *session.Store, engine *menu.Engine, upstreamClient *upstream.Client, ttl time.Duration) *Handler {
	return &Handler{sessions: sessions, engine: engine, upstream: upstreamClient, ttl: ttl}
}

// SetMetrics attaches a metrics recorder. A nil argument (the default)
// disables recording with zero overhead.
func (h *Handler) SetMetrics(m *metrics.TurnMetrics) {
	h.metrics = m
}

// Handle runs one turn end to end and returns the frame to send back.
func (h *Handler) Handle(ctx context.Context, req Request) (Frame, error) {
	if req.MSISDN == "" || req.SessionID == "" {
		return Frame{}, ErrInvalidRequest
	}

	masked := codec.MaskIdentifier(req.MSISDN)

	sess, err := h.fetchOrResetSession(ctx, req)
	if err != nil {
		logger.Warn("turn: session store unavailable", logger.MSISDN(masked), logger.SessionID(req.SessionID), logger.Err(err))
		return Frame{Action: "end", Message: "Service temporarily unavailable. Please try again."}, nil
	}

	access := session.NewAccess(h.sessions, req.MSISDN, req.SessionID, req.Shortcode)

	if sess.CurrentMenu == "home" && sess.CustomerData == nil {
		sess = h.resolveCustomer(ctx, req, sess, access)
	}

	actx := actions.Context{Customer: sess.CustomerData, Session: sess}
	result := h.runMenu(sess.CurrentMenu, req.Input, access, actx)

	nextMenu := sess.CurrentMenu
	if result.NextMenu != "" {
		nextMenu = result.NextMenu
	}

	if result.Message == "" && result.NextMenu != "" {
		rendered := h.engine.Render(result.NextMenu, access, actx, menu.NewTurn())
		result = merge(result, rendered)
	}

	if result.NextMenu != "" {
		if _, err := access.UpdateSession(ctx, map[string]any{"currentMenu": nextMenu}); err != nil {
			logger.Warn("turn: session update failed", logger.MSISDN(masked), logger.SessionID(req.SessionID), logger.Err(err))
		}
	}

	action := result.Action
	if action == "" {
		action = "con"
	}
	if action == "end" {
		if err := h.sessions.Clear(ctx, req.MSISDN, req.SessionID, req.Shortcode); err != nil {
			logger.Warn("turn: session clear failed", logger.MSISDN(masked), logger.SessionID(req.SessionID), logger.Err(err))
		}
	}

	message := result.Message
	if message == "" {
		message = result.ErrorMessage
	}

	h.metrics.RecordTurn(action)

	return Frame{Action: action, Message: message}, nil
}

// fetchOrResetSession gets the existing session for the triple, creating one
// if absent, and starts a fresh session if the time elapsed since the
// existing one's start anchor has exceeded the configured TTL.
func (h *Handler) fetchOrResetSession(ctx context.Context, req Request) (*session.Session, error) {
	sess, found, err := h.sessions.Get(ctx, req.MSISDN, req.SessionID, req.Shortcode)
	if err != nil {
		return nil, err
	}
	if !found {
		return h.sessions.Create(ctx, req.MSISDN, req.SessionID, req.Shortcode)
	}

	elapsed, err := h.sessions.ElapsedSeconds(ctx, req.MSISDN, req.SessionID, req.Shortcode)
	if err != nil {
		return nil, err
	}
	if elapsed > h.ttl.Seconds() {
		if err := h.sessions.Clear(ctx, req.MSISDN, req.SessionID, req.Shortcode); err != nil {
			return nil, err
		}
		return h.sessions.Create(ctx, req.MSISDN, req.SessionID, req.Shortcode)
	}

	return sess, nil
}

// resolveCustomer performs the one-time GETCUSTOMER lookup for a brand new
// session at the home menu, falling back to a guest identity on failure so
// the turn can still proceed.
func (h *Handler) resolveCustomer(ctx context.Context, req Request, sess *session.Session, access *session.Access) *session.Session {
	env := h.upstream.GetCustomer(ctx, req.MSISDN, access)

	customer := &session.CustomerData{CustomerID: session.GuestCustomerID}
	if env.Success {
		customer = &session.CustomerData{
			CustomerID: valueOr(env.Raw["CUSTOMERID"], session.GuestCustomerID),
			FirstName:  env.Raw["FIRSTNAME"],
			LastName:   env.Raw["LASTNAME"],
			Language:   env.Raw["LANGUAGE"],
			IDNumber:   env.Raw["IDNUMBER"],
			Email:      env.Raw["EMAIL"],
			Accounts:   splitCSV(env.Raw["ACCOUNTS"]),
			Aliases:    splitCSV(env.Raw["ALIASES"]),
		}
	} else {
		logger.Warn("turn: getCustomer failed, falling back to guest", logger.MSISDN(codec.MaskIdentifier(req.MSISDN)), logger.Err(errors.New(valueOr(env.Error, "unknown upstream error"))))
	}

	patch := map[string]any{"customerData": customer}
	updated, err := access.UpdateSession(ctx, patch)
	if err != nil {
		logger.Warn("turn: customer data persist failed", logger.MSISDN(codec.MaskIdentifier(req.MSISDN)), logger.Err(err))
		sess.CustomerData = customer
		return sess
	}
	return updated
}

// runMenu renders the current menu when the turn carries no input, or
// processes the input against it otherwise.
func (h *Handler) runMenu(currentMenu, input string, access *session.Access, actx actions.Context) *actions.Result {
	if input == "" {
		return h.engine.Render(currentMenu, access, actx, menu.NewTurn())
	}
	return h.engine.Process(currentMenu, input, access, actx, menu.NewTurn())
}

// merge folds a render's message into a process result that asked for a
// follow-on render (no message of its own), keeping the process result's
// action and bookkeeping fields.
func merge(result, rendered *actions.Result) *actions.Result {
	result.Message = rendered.Message
	if rendered.Action != "" {
		result.Action = rendered.Action
	}
	return result
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
