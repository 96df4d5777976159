// Package statement implements the mini-statement action module (C6).
package statement

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
)

const (
	slotAccount      = "statement_account"
	maxTransactions  = 5
	fieldsPerRecord  = 5
	firstRecordIndex = 10
)

// transaction is one mini-statement line parsed out of the backend's
// pipe-separated DATA field.
type transaction struct {
	Date        string
	Description string
	Type        string
	Amount      string
	Balance     string
}

// Module dispatches the mini-statement request.
type Module struct {
	Upstream *upstream.Client
}

// New returns a statement module bound to client.
func New(client *upstream.Client) *Module {
	return &Module{Upstream: client}
}

// ProcessStatementRequest reads the account the caller picked, fetches the
// mini statement, and formats it into a terminal frame.
func (m *Module) ProcessStatementRequest(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	var account string
	found, err := access.Grab(context.Background(), slotAccount, &account)
	if err != nil {
		return nil, err
	}
	if !found {
		return &actions.Result{Action: "end", Message: "Session expired. Please dial in again."}, nil
	}

	customerID := session.GuestCustomerID
	if ctx.Customer != nil && ctx.Customer.CustomerID != "" {
		customerID = ctx.Customer.CustomerID
	}

	env := m.Upstream.MiniStatement(context.Background(), account, customerID, access.MSISDN(), access)
	_ = access.Blank(context.Background(), slotAccount)

	if !env.Success {
		return &actions.Result{Action: "end", Message: "Unable to fetch your statement right now. Please try again later."}, nil
	}

	transactions := parseTransactions(env.Data)
	if len(transactions) == 0 {
		return &actions.Result{Action: "end", Message: "No recent transactions found."}, nil
	}

	return &actions.Result{Action: "end", Message: formatStatement(transactions)}, nil
}

// parseTransactions walks the flat pipe-separated field array starting at
// firstRecordIndex, taking fieldsPerRecord fields per transaction, up to
// maxTransactions records.
func parseTransactions(raw string) []transaction {
	fields := strings.Split(raw, "|")

	var result []transaction
	for i := firstRecordIndex; i+fieldsPerRecord <= len(fields) && len(result) < maxTransactions; i += fieldsPerRecord {
		result = append(result, transaction{
			Date:        strings.TrimSpace(fields[i]),
			Description: strings.TrimSpace(fields[i+1]),
			Type:        strings.TrimSpace(fields[i+2]),
			Amount:      strings.TrimSpace(fields[i+3]),
			Balance:     strings.TrimSpace(fields[i+4]),
		})
	}
	return result
}

func formatStatement(transactions []transaction) string {
	var b strings.Builder
	b.WriteString("Mini Statement\n")
	for i, t := range transactions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s %s bal:%s", t.Date, t.Type, t.Description, t.Amount, t.Balance)
	}
	return strings.TrimSpace(b.String())
}
