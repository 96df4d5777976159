// Package actions defines the shared vocabulary action modules speak: the
// Result the menu engine expects back from a handler, and the Context it
// hands in alongside the raw input.
package actions

import "github.com/marmos91/ussdgw/pkg/session"

// Result is the normalised shape every action handler and menu handler
// returns. Action defaults to "con" when empty.
type Result struct {
	Action       string `json:"action,omitempty"`
	Message      string `json:"message,omitempty"`
	NextMenu     string `json:"nextMenu,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	RetryMenu    string `json:"retryMenu,omitempty"`
}

// Context is handed to every handler alongside the raw input value.
type Context struct {
	Customer    *session.CustomerData
	Session     *session.Session
	Data        map[string]any
	Transaction map[string]any
}

// Handler is the signature every action-module method the registry
// enumerates must satisfy.
type Handler func(input string, access *session.Access, ctx Context) (*Result, error)
