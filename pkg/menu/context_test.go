package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
)

func TestContextMapFlattensCustomerAndSession(t *testing.T) {
	ctx := actions.Context{
		Customer: &session.CustomerData{CustomerID: "C1", Accounts: []string{"001", "002"}},
		Session:  &session.Session{CurrentMenu: "home", AuthStatus: session.AuthPending},
		Data:     map[string]any{"amount": "100"},
	}

	root := contextMap(ctx)

	v, ok := resolvePath(root, "customer.customerId")
	assert.True(t, ok)
	assert.Equal(t, "C1", v)

	v, ok = resolvePath(root, "customer.accounts.1")
	assert.True(t, ok)
	assert.Equal(t, "002", v)

	v, ok = resolvePath(root, "session.currentMenu")
	assert.True(t, ok)
	assert.Equal(t, "home", v)

	v, ok = resolvePath(root, "data.amount")
	assert.True(t, ok)
	assert.Equal(t, "100", v)
}

func TestResolvePathMissingSegment(t *testing.T) {
	root := map[string]any{"customer": map[string]any{"customerId": "C1"}}

	_, ok := resolvePath(root, "customer.missing")
	assert.False(t, ok)

	_, ok = resolvePath(root, "customer.accounts.0")
	assert.False(t, ok)
}

func TestRenderString(t *testing.T) {
	assert.Equal(t, "", renderString(nil))
	assert.Equal(t, "hello", renderString("hello"))
	assert.Equal(t, "5", renderString(5))
}
