package codec

import "strings"

// pinFields never get logged in the clear, regardless of which call carried
// them.
var pinFields = map[string]bool{
	"OLDPIN":    true,
	"NEWPIN":    true,
	"TMPIN":     true,
	"TRXMPIN":   true,
	"LOGINMPIN": true,
	"PIN":       true,
	"PASSWORD":  true,
	"SECRET":    true,
}

// identifierFields get partially masked rather than blanked, so a log line
// is still useful for tracing a single caller across turns.
var identifierFields = map[string]bool{
	"MOBILENUMBER": true,
	"MSISDN":       true,
	"ACCOUNTID":    true,
}

const maskedValue = "[MASKED]"

// MaskTuples returns a copy of fields with PIN-family values replaced by
// "[MASKED]" and identifier values partially masked. It never mutates the
// wire data itself, only a log-bound copy of it.
func MaskTuples(fields map[string]string) map[string]string {
	masked := make(map[string]string, len(fields))
	for k, v := range fields {
		switch {
		case pinFields[k]:
			masked[k] = maskedValue
		case identifierFields[k]:
			masked[k] = MaskIdentifier(v)
		default:
			masked[k] = v
		}
	}
	return masked
}

// MaskIdentifier masks a digit identifier of length >= 6 as the first three
// and last three digits, e.g. "254700111222" -> "254****222". Shorter
// values are returned unchanged since there's nothing safe left to reveal.
func MaskIdentifier(value string) string {
	if len(value) < 6 {
		return value
	}
	return value[:3] + "****" + value[len(value)-3:]
}

// MaskRaw masks PIN-family and identifier fields inside a raw "KEY:VALUE:"
// string, for callers that log the wire string directly instead of the
// parsed tuple map.
func MaskRaw(raw string) string {
	fields := ParseTuples(raw)
	if len(fields) == 0 {
		return raw
	}

	masked := MaskTuples(fields)

	var b strings.Builder
	for k, v := range masked {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte(':')
	}
	return b.String()
}
