package menu

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	msisdnShape = regexp.MustCompile(`^(07|01)[0-9]{8}$`)
	pinShape    = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// CustomValidator is a caller-registered handler for the "custom"
// validation kind.
type CustomValidator func(input string, params map[string]any) (bool, string)

// validate runs input through the named validation kind. It returns ok and,
// when ok is false, a user-facing error message.
func (e *Engine) validate(kind, input string, params map[string]any) (bool, string) {
	switch kind {
	case "msisdn":
		if !msisdnShape.MatchString(input) {
			return false, "Please enter a valid mobile number."
		}
		return true, ""
	case "amount":
		return validateAmount(input, params)
	case "date":
		return validateDate(input, params)
	case "pin":
		if !pinShape.MatchString(input) {
			return false, "Please enter a valid 4-6 digit PIN."
		}
		return true, ""
	case "option":
		return validateOption(input, params)
	case "pin_or_option":
		if input == "1" {
			return true, ""
		}
		if !pinShape.MatchString(input) {
			return false, "Please enter 1 or a valid PIN."
		}
		return true, ""
	case "custom":
		name, _ := params["handler"].(string)
		fn, ok := e.customValidators[name]
		if !ok {
			return false, "Invalid selection. Please try again."
		}
		return fn(input, params)
	default:
		return true, ""
	}
}

func validateAmount(input string, params map[string]any) (bool, string) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return false, "Please enter a valid amount."
	}

	min := floatParam(params, "min", 0)
	max := floatParam(params, "max", 0)

	if min > 0 && amount < min {
		return false, "Amount is below the minimum allowed."
	}
	if max > 0 && amount > max {
		return false, "Amount is above the maximum allowed."
	}
	return true, ""
}

func validateDate(input string, params map[string]any) (bool, string) {
	layout := "02012006"
	if v, ok := params["format"].(string); ok && v != "" {
		layout = v
	}

	parsed, err := time.Parse(layout, strings.TrimSpace(input))
	if err != nil {
		return false, "Please enter a valid date."
	}

	now := time.Now()
	if parsed.After(now) {
		return false, "Date cannot be in the future."
	}
	if parsed.Before(now.AddDate(-10, 0, 0)) {
		return false, "Date is too far in the past."
	}
	return true, ""
}

func validateOption(input string, params map[string]any) (bool, string) {
	raw, ok := params["options"].([]any)
	if !ok {
		return false, "Invalid selection. Please try again."
	}
	for _, o := range raw {
		if stringValue(o) == input {
			return true, ""
		}
	}
	return false, "Invalid selection. Please try again."
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	f, ok := toFloat(v)
	if !ok {
		return fallback
	}
	return f
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return renderString(v)
}

// Transform applies one of the configured transform kinds to input.
func Transform(kind, input string) string {
	switch kind {
	case "msisdn_to_254":
		return msisdnTo254(input)
	case "msisdn_to_0":
		return msisdnTo0(input)
	case "uppercase":
		return strings.ToUpper(input)
	case "lowercase":
		return strings.ToLower(input)
	default:
		return input
	}
}

func msisdnTo254(input string) string {
	if strings.HasPrefix(input, "0") && len(input) == 10 {
		return "254" + input[1:]
	}
	return input
}

func msisdnTo0(input string) string {
	if strings.HasPrefix(input, "254") && len(input) == 12 {
		return "0" + input[3:]
	}
	return input
}
