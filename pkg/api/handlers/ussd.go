package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"regexp"

	"github.com/marmos91/ussdgw/pkg/turn"
)

var (
	msisdnShape    = regexp.MustCompile(`^[0-9]{9,15}$`)
	sessionIDShape = regexp.MustCompile(`^.{3,50}$`)
	shortcodeShape = regexp.MustCompile(`^[0-9]{3,6}$`)
)

// maxInputLength is the upper bound on the inbound "response" field, an
// optional free-text reply from the subscriber's handset.
const maxInputLength = 500

// USSDHandler turns one inbound aggregator request into one turn.Handler
// invocation and writes back the plain-text "{action} {message}" frame.
type USSDHandler struct {
	turn *turn.Handler
}

// NewUSSDHandler creates a USSD handler bound to a turn orchestrator.
func NewUSSDHandler(h *turn.Handler) *USSDHandler {
	return &USSDHandler{turn: h}
}

// Handle handles POST /api/ussd. The body may be form-urlencoded or JSON,
// with the fields "msisdn", "sessionid", "shortcode" and "response"; JSON
// keys match case-insensitively, form keys must match exactly. A malformed
// request gets a 400 frame -- the only failure
// mode that surfaces as a non-200, since the telco channel only ever reads
// the response body of a 200.
func (h *USSDHandler) Handle(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeFrame(w, http.StatusBadRequest, "end", "Invalid parameters")
		return
	}

	if !msisdnShape.MatchString(req.MSISDN) || !sessionIDShape.MatchString(req.SessionID) ||
		(req.Shortcode != "" && !shortcodeShape.MatchString(req.Shortcode)) ||
		len(req.Input) > maxInputLength {
		writeFrame(w, http.StatusBadRequest, "end", "Invalid parameters")
		return
	}

	frame, err := h.turn.Handle(r.Context(), req)
	if err != nil {
		writeFrame(w, http.StatusBadRequest, "end", "Invalid parameters")
		return
	}

	writeFrame(w, http.StatusOK, frame.Action, frame.Message)
}

func writeFrame(w http.ResponseWriter, status int, action, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(action + " " + message))
}

// parseRequest extracts a turn.Request from either a form-urlencoded or a
// JSON body.
func parseRequest(r *http.Request) (turn.Request, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/json" {
		var body struct {
			MSISDN    string `json:"msisdn"`
			SessionID string `json:"sessionid"`
			Shortcode string `json:"shortcode"`
			Response  string `json:"response"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return turn.Request{}, err
		}
		return turn.Request{MSISDN: body.MSISDN, SessionID: body.SessionID, Shortcode: body.Shortcode, Input: body.Response}, nil
	}

	if err := r.ParseForm(); err != nil {
		return turn.Request{}, err
	}
	return turn.Request{
		MSISDN:    r.FormValue("msisdn"),
		SessionID: r.FormValue("sessionid"),
		Shortcode: r.FormValue("shortcode"),
		Input:     r.FormValue("response"),
	}, nil
}
