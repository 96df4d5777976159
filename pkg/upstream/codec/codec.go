// Package codec implements the colon-tuple wire format spoken by the
// core-banking upstream: outbound requests are flat "KEY:VALUE:" strings,
// inbound responses are the same shape optionally wrapped in tag-like
// markers.
package codec

import (
	"strings"

	"github.com/google/uuid"
)

// Base carries the session/config-derived fields every outbound request
// starts from. Per-call data supplied by the caller is merged on top and
// wins on key collision.
type Base struct {
	FormID       string
	MobileNumber string
	Session      string
	BankID       string
	BankName     string
	Shortcode    string
	Country      string
	TrxSource    string
	CustomerID   string // optional, empty when not yet known
	BankAccounts string // optional, empty when not yet known
}

// statusMessages maps failure status codes to the human message shown in
// place of whatever the backend sent back.
var statusMessages = map[string]string{
	"091": "Invalid PIN",
	"092": "Account locked",
	"093": "Invalid account",
}

// successStatuses is the set of STATUS values that mark an upstream call as
// having succeeded.
var successStatuses = map[string]bool{
	"000": true, "00": true, "0": true, "OK": true, "SUCCESS": true,
}

// Envelope is the decoded shape of an upstream response.
type Envelope struct {
	Success bool
	Status  string
	Code    string
	Data    string
	Raw     map[string]string
	Message string
	Error   string
}

// Encode builds the outbound colon-tuple string. extra is parsed with Decode
// semantics (KEY:VALUE:... pairs) and merged on top of the base fields,
// caller wins. Empty values are dropped.
func Encode(base Base, extra string) string {
	fields := map[string]string{
		"FORMID":       base.FormID,
		"MOBILENUMBER": base.MobileNumber,
		"SESSION":      base.Session,
		"BANKID":       base.BankID,
		"BANKNAME":     base.BankName,
		"SHORTCODE":    base.Shortcode,
		"COUNTRY":      base.Country,
		"TRXSOURCE":    base.TrxSource,
		"DEVICEID":     base.MobileNumber + base.Shortcode,
		"UNIQUEID":     uuid.New().String(),
	}
	if base.CustomerID != "" {
		fields["CUSTOMERID"] = base.CustomerID
	}
	if base.BankAccounts != "" {
		fields["BANKACCOUNTS"] = base.BankAccounts
	}

	for k, v := range ParseTuples(extra) {
		if v == "" {
			continue
		}
		fields[k] = v
	}

	var b strings.Builder
	for k, v := range fields {
		if v == "" {
			continue
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte(':')
	}
	return b.String()
}

// ParseTuples strips tag-like "<...>" wrappers and splits the remaining
// string by ":" into alternating key/value pairs. A trailing unmatched key
// (no value following it) is dropped.
func ParseTuples(raw string) map[string]string {
	raw = stripTags(raw)
	parts := strings.Split(raw, ":")

	result := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		key := strings.TrimSpace(parts[i])
		if key == "" {
			continue
		}
		result[key] = strings.TrimSpace(parts[i+1])
	}
	return result
}

// Decode parses an inbound response into an Envelope. status is read from
// the "STATUS" tuple, message falls back from DATA to MESSAGE to empty, and
// on failure the message is replaced by the mapped human text when the
// status code is known.
func Decode(raw string) Envelope {
	result := ParseTuples(raw)

	status := result["STATUS"]
	success := successStatuses[status]

	message := result["DATA"]
	if message == "" {
		message = result["MESSAGE"]
	}

	env := Envelope{
		Success: success,
		Status:  status,
		Code:    status,
		Data:    result["DATA"],
		Raw:     result,
		Message: message,
	}

	if !success {
		if mapped, ok := statusMessages[status]; ok {
			env.Message = mapped
		}
		env.Error = env.Message
	}

	return env
}

// stripTags removes any "<...>" wrapper the backend may have placed around
// the response body.
func stripTags(raw string) string {
	var b strings.Builder
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
