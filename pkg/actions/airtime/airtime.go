// Package airtime implements the airtime-purchase confirmation action
// module (C6).
package airtime

import (
	"context"
	"regexp"
	"strconv"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
)

const (
	minAmount     = 10
	maxAmount     = 5000
	dailyCap      = 10000
	slotNetwork   = "network"
	slotMerchant  = "merchantId"
	slotAmount    = "airtime_amount"
	slotMode      = "airtime_mode"
	slotRecipient = "airtime_recipient"
	slotPin       = "transaction_pin"
)

var msisdnShape = regexp.MustCompile(`^(?:0[17]|254[17])[0-9]{8}$`)

// Module dispatches the airtime purchase confirmation flow.
type Module struct {
	Upstream *upstream.Client
	Daily    *DailyAggregate
}

// New returns an airtime module bound to client and a daily spend tracker.
func New(client *upstream.Client, daily *DailyAggregate) *Module {
	return &Module{Upstream: client, Daily: daily}
}

// ProcessAirtimeConfirmation handles the final confirmation step of an
// airtime purchase.
func (m *Module) ProcessAirtimeConfirmation(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	bg := context.Background()

	if input != "1" {
		return &actions.Result{Action: "con", NextMenu: "mobilebanking"}, nil
	}

	var network, merchantID, amountStr, mode string
	if _, err := access.Grab(bg, slotNetwork, &network); err != nil {
		return nil, err
	}
	if _, err := access.Grab(bg, slotMerchant, &merchantID); err != nil {
		return nil, err
	}
	if _, err := access.Grab(bg, slotAmount, &amountStr); err != nil {
		return nil, err
	}
	if _, err := access.Grab(bg, slotMode, &mode); err != nil {
		return nil, err
	}

	recipient := access.MSISDN()
	if mode == "other" {
		if _, err := access.Grab(bg, slotRecipient, &recipient); err != nil {
			return nil, err
		}
	}

	if !msisdnShape.MatchString(recipient) {
		return &actions.Result{
			Action:       "con",
			Error:        "INVALID_MSISDN",
			ErrorMessage: "Invalid mobile number for airtime top-up.",
			RetryMenu:    "mobilebanking",
		}, nil
	}

	var pin string
	found, err := access.Grab(bg, slotPin, &pin)
	if err != nil {
		return nil, err
	}
	if !found || pin == "" {
		if err := access.Store(bg, "airtime_redirect", true); err != nil {
			return nil, err
		}
		return &actions.Result{Action: "con", NextMenu: "pin"}, nil
	}

	amount, err := strconv.Atoi(amountStr)
	if err != nil || amount < minAmount || amount > maxAmount {
		return &actions.Result{
			Action:       "con",
			Error:        "INVALID_AMOUNT",
			ErrorMessage: "Amount must be between 10 and 5000.",
			RetryMenu:    "mobilebanking",
		}, nil
	}

	if m.Daily != nil {
		spent, err := m.Daily.Total(bg, access.MSISDN())
		if err != nil {
			return nil, err
		}
		if spent+amount > dailyCap {
			return &actions.Result{
				Action:       "end",
				Error:        "DAILY_LIMIT_EXCEEDED",
				ErrorMessage: "You have reached your daily airtime purchase limit.",
			}, nil
		}
	}

	bankAccountID := ""
	if ctx.Customer != nil && len(ctx.Customer.Accounts) > 0 {
		bankAccountID = ctx.Customer.Accounts[0]
	}

	env := m.Upstream.AirtimePurchase(bg, merchantID, bankAccountID, recipient, amountStr, pin, access)

	_ = access.Blank(bg, slotNetwork, slotMerchant, slotAmount, slotMode, slotRecipient, slotPin, "airtime_redirect")

	if !env.Success {
		return &actions.Result{
			Action:       "con",
			Error:        "AIRTIME_FAILED",
			ErrorMessage: "Airtime purchase failed. Please try again or cancel.",
			RetryMenu:    "mobilebanking",
		}, nil
	}

	if m.Daily != nil {
		if _, err := m.Daily.Add(bg, access.MSISDN(), amount); err != nil {
			return nil, err
		}
	}

	return &actions.Result{Action: "end", Message: "Airtime purchase successful. Ref: " + env.Raw["UNIQUEID"]}, nil
}
