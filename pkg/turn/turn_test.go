package turn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ussdgw/pkg/kv"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/registry"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

func newTestHandler(t *testing.T, upstreamBody string, dir string) *Handler {
	t.Helper()

	kvStore, err := kv.Open(kv.Config{Dir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	store := session.NewStore(kvStore, "ussd:session", 300*time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(server.Close)

	client := upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{Shortcode: "527"})

	reg := registry.New()
	eng := menu.New(reg, client)
	require.NoError(t, eng.Load(dir))

	return New(store, eng, client, 300*time.Second)
}

func writeMenu(t *testing.T, dir, name, message string, opts ...menu.Option) {
	t.Helper()
	writeMenuNode(t, dir, menu.Node{Name: name, Message: message, Options: opts})
}

func writeMenuNode(t *testing.T, dir string, node menu.Node) {
	t.Helper()
	data, err := json.Marshal(node)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, node.Name+".json"), data, 0o644))
}

func TestHandleRejectsMissingMSISDN(t *testing.T) {
	dir := t.TempDir()
	h := newTestHandler(t, "STATUS:000:", dir)

	_, err := h.Handle(context.Background(), Request{SessionID: "S1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleRendersHomeOnEmptyInput(t *testing.T) {
	dir := t.TempDir()
	writeMenu(t, dir, "home", "Welcome {customer.firstName}")

	h := newTestHandler(t, "STATUS:000:FIRSTNAME:Jane:CUSTOMERID:C1:", dir)

	frame, err := h.Handle(context.Background(), Request{MSISDN: "254700111222", SessionID: "S1", Shortcode: "527"})
	require.NoError(t, err)
	assert.Equal(t, "con", frame.Action)
	assert.Contains(t, frame.Message, "Jane")
}

func TestHandleFallsBackToGuestOnUpstreamFailure(t *testing.T) {
	dir := t.TempDir()
	writeMenu(t, dir, "home", "Welcome {customer.customerId}")

	h := newTestHandler(t, "STATUS:093:", dir)

	frame, err := h.Handle(context.Background(), Request{MSISDN: "254700111222", SessionID: "S1", Shortcode: "527"})
	require.NoError(t, err)
	assert.Contains(t, frame.Message, session.GuestCustomerID)
}

func TestHandleProcessChainsRenderOnNextMenu(t *testing.T) {
	dir := t.TempDir()
	writeMenuNode(t, dir, menu.Node{
		Name:    "home",
		Message: "pick",
		Options: []menu.Option{{Text: "Balance", NextMenu: "balance"}},
	})
	writeMenuNode(t, dir, menu.Node{Name: "balance", Message: "Balance menu"})

	h := newTestHandler(t, "STATUS:000:CUSTOMERID:C1:", dir)
	ctx := context.Background()

	req := Request{MSISDN: "254700111222", SessionID: "S1", Shortcode: "527"}
	_, err := h.Handle(ctx, req) // home render, triggers getCustomer + persists home menu
	require.NoError(t, err)

	req.Input = "1"
	frame, err := h.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "con", frame.Action)
	assert.Contains(t, frame.Message, "Balance menu")
}

func TestHandleEndClearsSession(t *testing.T) {
	dir := t.TempDir()
	writeMenuNode(t, dir, menu.Node{
		Name:    "home",
		Message: "pick",
		Options: []menu.Option{{Text: "Exit", NextMenu: menu.EndMenu}},
	})

	h := newTestHandler(t, "STATUS:000:CUSTOMERID:C1:", dir)
	ctx := context.Background()
	req := Request{MSISDN: "254700111222", SessionID: "S1", Shortcode: "527"}

	_, err := h.Handle(ctx, req)
	require.NoError(t, err)

	req.Input = "1"
	frame, err := h.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "end", frame.Action)

	_, found, err := h.sessions.Get(ctx, req.MSISDN, req.SessionID, req.Shortcode)
	require.NoError(t, err)
	assert.False(t, found)
}
