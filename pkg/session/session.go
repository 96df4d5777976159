// Package session implements the composite-keyed conversational state store
// (C2) that sits directly on top of pkg/kv. It is the only place turn state
// survives between one aggregator request and the next.
package session

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for session store operations.
var (
	ErrNotFound  = errors.New("session: not found")
	ErrSlotEmpty = errors.New("session: slot empty")
)

// AuthStatus values.
const (
	AuthPending       = "pending"
	AuthAuthenticated = "authenticated"
)

// CustomerData holds the result of an upstream GETCUSTOMER lookup.
type CustomerData struct {
	CustomerID string   `json:"customerId"`
	FirstName  string   `json:"firstName,omitempty"`
	LastName   string   `json:"lastName,omitempty"`
	Language   string   `json:"language,omitempty"`
	Accounts   []string `json:"accounts,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	IDNumber   string   `json:"idNumber,omitempty"`
	Email      string   `json:"email,omitempty"`
}

// GuestCustomerID is the sentinel customerId used when the initial
// GETCUSTOMER lookup fails and the gateway falls back to guest mode.
const GuestCustomerID = "GUEST"

// Session is the central conversational record for one (msisdn, sessionId,
// shortcode) triple.
type Session struct {
	CurrentMenu      string        `json:"currentMenu"`
	MenuHistory      []string      `json:"menuHistory"`
	CustomerData     *CustomerData `json:"customerData,omitempty"`
	AuthStatus       string        `json:"authStatus"`
	TransactionCount int           `json:"transactionCount"`
	SessionStart     time.Time     `json:"sessionStart"`
	LastActivity     time.Time     `json:"lastActivity"`
	SessionEnd       time.Time     `json:"sessionEnd,omitzero"`
	LastTransaction  time.Time     `json:"lastTransaction,omitzero"`
	CreatedAtMillis  int64         `json:"createdAtMillis"`
}

// newDefault builds the default record for a brand new session.
func newDefault(now time.Time) *Session {
	return &Session{
		CurrentMenu:  "home",
		MenuHistory:  []string{"home"},
		AuthStatus:   AuthPending,
		SessionStart: now,
		LastActivity: now,
	}
}

// Key builds the composite session key: "{prefix}:{msisdn}:{sessionId}:{shortcode|default}".
func Key(prefix, msisdn, sessionID, shortcode string) string {
	if shortcode == "" {
		shortcode = "default"
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, msisdn, sessionID, shortcode)
}

func startKey(sessionKey string) string {
	return sessionKey + ":start"
}

func slotKey(sessionKey, slot string) string {
	return sessionKey + ":" + slot
}
