// Package pin implements the PIN login/forgot-PIN action module (C6).
package pin

import (
	"context"
	"regexp"
	"strings"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
)

var pinShape = regexp.MustCompile(`^[0-9]{4,6}$`)

// Module dispatches PIN login attempts against the upstream backend.
type Module struct {
	Upstream *upstream.Client
}

// New returns a PIN module bound to client.
func New(client *upstream.Client) *Module {
	return &Module{Upstream: client}
}

// ProcessPinOrForgot handles a PIN entry step. input is either the literal
// "1" (forgot-PIN branch) or a candidate PIN.
func (m *Module) ProcessPinOrForgot(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	if input == "1" {
		return &actions.Result{Action: "con", NextMenu: "forgot_pin_info"}, nil
	}

	if !pinShape.MatchString(input) {
		return &actions.Result{
			Action:       "con",
			Error:        "INVALID_PIN",
			ErrorMessage: "Please enter a valid 4-6 digit PIN.",
			RetryMenu:    "home",
		}, nil
	}

	if err := access.Store(context.Background(), "pin_attempt", input); err != nil {
		return nil, err
	}

	customerID := session.GuestCustomerID
	if ctx.Customer != nil && ctx.Customer.CustomerID != "" {
		customerID = ctx.Customer.CustomerID
	}

	env := m.Upstream.Login(context.Background(), customerID, access.MSISDN(), input, access)
	if env.Success {
		accounts := splitAccounts(env.Raw["ACCOUNTS"])

		patch := map[string]any{
			"authStatus": session.AuthAuthenticated,
			"customerData": map[string]any{
				"customerId": customerID,
				"accounts":   accounts,
			},
		}
		if _, err := access.UpdateSession(context.Background(), patch); err != nil {
			return nil, err
		}
		if err := access.Store(context.Background(), "loginData", env.Raw); err != nil {
			return nil, err
		}

		return &actions.Result{Action: "con", NextMenu: "main_menu"}, nil
	}

	switch env.Status {
	case "101":
		return &actions.Result{Action: "con", NextMenu: "change_pin_forced", Message: "Your PIN has expired. Please set a new PIN."}, nil
	case "102":
		return &actions.Result{Action: "end", Message: "Your account has been blocked. Please visit your nearest branch."}, nil
	case "091":
		return &actions.Result{Action: "con", Error: "INVALID_PIN", ErrorMessage: "Invalid Login Password", RetryMenu: "home"}, nil
	default:
		msg := env.Message
		if msg == "" {
			msg = "Service temporarily unavailable. Please try again."
		}
		return &actions.Result{Action: "con", Error: "LOGIN_FAILED", ErrorMessage: msg, RetryMenu: "home"}, nil
	}
}

// splitAccounts turns a comma-separated ACCOUNTS field into a trimmed,
// empty-entry-free slice.
func splitAccounts(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	accounts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			accounts = append(accounts, p)
		}
	}
	return accounts
}
