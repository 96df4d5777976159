package pin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/kv"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

func newTestAccess(t *testing.T) *session.Access {
	t.Helper()
	kvStore, err := kv.Open(kv.Config{Dir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	store := session.NewStore(kvStore, "ussd:session", 300*time.Second)
	_, err = store.Create(context.Background(), "254700111222", "S1", "527")
	require.NoError(t, err)

	return session.NewAccess(store, "254700111222", "S1", "527")
}

func TestProcessPinOrForgotForgotBranch(t *testing.T) {
	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "forgot_pin_info", result.NextMenu)
}

func TestProcessPinOrForgotInvalidShape(t *testing.T) {
	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("abc", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "home", result.RetryMenu)
}

func TestProcessPinOrForgotSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("STATUS:000:ACCOUNTS:0102030405-Main,0102030406-Savings:"))
	}))
	defer server.Close()

	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("1234", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "main_menu", result.NextMenu)

	rec, ok, err := access.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.AuthAuthenticated, rec.AuthStatus)
	assert.Equal(t, []string{"0102030405-Main", "0102030406-Savings"}, rec.CustomerData.Accounts)

	var attempt string
	found, err := access.Grab(context.Background(), "pin_attempt", &attempt)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1234", attempt)
}

func TestProcessPinOrForgotExpiredPin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("STATUS:101:"))
	}))
	defer server.Close()

	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("1234", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "change_pin_forced", result.NextMenu)
}

func TestProcessPinOrForgotBlockedAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("STATUS:102:"))
	}))
	defer server.Close()

	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("1234", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "end", result.Action)
}

func TestProcessPinOrForgotInvalidPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("STATUS:091:"))
	}))
	defer server.Close()

	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}))
	access := newTestAccess(t)

	result, err := m.ProcessPinOrForgot("1234", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "Invalid Login Password", result.ErrorMessage)
}
