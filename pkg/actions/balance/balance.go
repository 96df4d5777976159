// Package balance implements the two-step account balance action module
// (C6): account selection, then PIN verification before the balance query.
package balance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
)

var pinShape = regexp.MustCompile(`^[0-9]{4,6}$`)

const (
	slotSelectedAccount = "balance_selected_account"
)

// Module dispatches the two-step balance flow.
type Module struct {
	Upstream *upstream.Client
}

// New returns a balance module bound to client.
func New(client *upstream.Client) *Module {
	return &Module{Upstream: client}
}

// ProcessBalanceRequest validates the account index chosen from the list
// rendered by the balance menu and stores it for the PIN step.
func (m *Module) ProcessBalanceRequest(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	accounts := customerAccounts(ctx)

	index, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || index < 1 || index > len(accounts) {
		return &actions.Result{
			Action:       "con",
			Error:        "INVALID_SELECTION",
			ErrorMessage: "Invalid selection. Please try again.",
			RetryMenu:    "balance_account_select",
		}, nil
	}

	if err := access.Store(context.Background(), slotSelectedAccount, accounts[index-1]); err != nil {
		return nil, err
	}

	return &actions.Result{Action: "con", NextMenu: "balance_pin"}, nil
}

// ProcessBalancePin validates the PIN, verifies it via login, and on success
// queries the balance for the previously selected account.
func (m *Module) ProcessBalancePin(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	if !pinShape.MatchString(input) {
		return &actions.Result{
			Action:       "con",
			Error:        "INVALID_PIN",
			ErrorMessage: "Please enter a valid 4-6 digit PIN.",
			RetryMenu:    "balance_pin",
		}, nil
	}

	var account string
	found, err := access.Grab(context.Background(), slotSelectedAccount, &account)
	if err != nil {
		return nil, err
	}
	if !found {
		_ = access.Blank(context.Background(), slotSelectedAccount)
		return &actions.Result{Action: "con", Error: "SESSION_EXPIRED", ErrorMessage: "Please start again.", NextMenu: "main_menu"}, nil
	}

	customerID := session.GuestCustomerID
	if ctx.Customer != nil && ctx.Customer.CustomerID != "" {
		customerID = ctx.Customer.CustomerID
	}

	loginEnv := m.Upstream.Login(context.Background(), customerID, access.MSISDN(), input, access)
	if !loginEnv.Success {
		_ = access.Blank(context.Background(), slotSelectedAccount)
		return &actions.Result{Action: "con", Error: "INVALID_PIN", ErrorMessage: "Incorrect PIN. Please try again.", NextMenu: "main_menu"}, nil
	}

	balanceEnv := m.Upstream.Balance(context.Background(), account, customerID, access.MSISDN(), access)
	_ = access.Blank(context.Background(), slotSelectedAccount)

	if !balanceEnv.Success {
		return &actions.Result{Action: "con", Error: "BALANCE_FAILED", ErrorMessage: "Unable to fetch balance right now. Please try again later.", NextMenu: "main_menu"}, nil
	}

	return &actions.Result{Action: "con", Message: formatSummary(balanceEnv.Message), NextMenu: "main_menu"}, nil
}

// customerAccounts returns the accounts known for the session's customer.
func customerAccounts(ctx actions.Context) []string {
	if ctx.Customer == nil {
		return nil
	}
	return ctx.Customer.Accounts
}

// formatSummary turns a pipe-separated "label|value|label|value..." MESSAGE
// field into a human-readable "label: value" summary, one pair per line.
func formatSummary(raw string) string {
	parts := strings.Split(raw, "|")
	var b strings.Builder
	for i := 0; i+1 < len(parts); i += 2 {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", strings.TrimSpace(parts[i]), strings.TrimSpace(parts[i+1]))
	}
	return b.String()
}
