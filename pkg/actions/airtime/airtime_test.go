package airtime

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

func newTestAccess(t *testing.T) (*session.Access, *kv.Store) {
	t.Helper()
	kvStore, err := kv.Open(kv.Config{Dir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvStore.Close() })

	store := session.NewStore(kvStore, "ussd:session", 300*time.Second)
	_, err = store.Create(context.Background(), "254700111222", "S1", "527")
	require.NoError(t, err)

	return session.NewAccess(store, "254700111222", "S1", "527"), kvStore
}

func seedConfirmationSlots(t *testing.T, access *session.Access, mode, pin string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, access.Store(ctx, slotNetwork, "Safaricom"))
	require.NoError(t, access.Store(ctx, slotMerchant, "M1"))
	require.NoError(t, access.Store(ctx, slotAmount, "100"))
	require.NoError(t, access.Store(ctx, slotMode, mode))
	if pin != "" {
		require.NoError(t, access.Store(ctx, slotPin, pin))
	}
}

func TestProcessAirtimeConfirmationCancel(t *testing.T) {
	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}), daily)

	result, err := m.ProcessAirtimeConfirmation("2", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "mobilebanking", result.NextMenu)
}

func TestProcessAirtimeConfirmationMissingPinRedirects(t *testing.T) {
	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}), daily)

	seedConfirmationSlots(t, access, "own", "")

	result, err := m.ProcessAirtimeConfirmation("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "pin", result.NextMenu)
}

func TestProcessAirtimeConfirmationHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("STATUS:000:UNIQUEID:abc-123:"))
	}))
	defer server.Close()

	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}), daily)

	seedConfirmationSlots(t, access, "own", "1234")

	result, err := m.ProcessAirtimeConfirmation("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "end", result.Action)
	assert.Contains(t, result.Message, "abc-123")

	total, err := daily.Total(context.Background(), access.MSISDN())
	require.NoError(t, err)
	assert.Equal(t, 100, total)
}

func TestProcessAirtimeConfirmationInvalidAmount(t *testing.T) {
	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}), daily)

	ctx := context.Background()
	require.NoError(t, access.Store(ctx, slotNetwork, "Safaricom"))
	require.NoError(t, access.Store(ctx, slotMerchant, "M1"))
	require.NoError(t, access.Store(ctx, slotAmount, "5"))
	require.NoError(t, access.Store(ctx, slotMode, "own"))
	require.NoError(t, access.Store(ctx, slotPin, "1234"))

	result, err := m.ProcessAirtimeConfirmation("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "INVALID_AMOUNT", result.Error)
}

func TestProcessAirtimeConfirmationDailyCapExceeded(t *testing.T) {
	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	_, err := daily.Add(context.Background(), access.MSISDN(), 9950)
	require.NoError(t, err)

	m := New(upstream.New(upstream.Config{BaseURL: "http://unused"}, codec.Base{}), daily)
	seedConfirmationSlots(t, access, "own", "1234")

	result, err := m.ProcessAirtimeConfirmation("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", result.Error)
}

func TestProcessAirtimeConfirmationOtherRecipient(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = r.URL.Query().Get("b")
		w.Write([]byte("STATUS:000:UNIQUEID:ref1:"))
	}))
	defer server.Close()

	access, kvStore := newTestAccess(t)
	daily := NewDailyAggregate(kvStore, time.UTC)
	m := New(upstream.New(upstream.Config{BaseURL: server.URL}, codec.Base{}), daily)

	ctx := context.Background()
	require.NoError(t, access.Store(ctx, slotNetwork, "Safaricom"))
	require.NoError(t, access.Store(ctx, slotMerchant, "M1"))
	require.NoError(t, access.Store(ctx, slotAmount, "100"))
	require.NoError(t, access.Store(ctx, slotMode, "other"))
	require.NoError(t, access.Store(ctx, slotRecipient, "0711000111"))
	require.NoError(t, access.Store(ctx, slotPin, "1234"))

	result, err := m.ProcessAirtimeConfirmation("1", access, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "end", result.Action)

	fields := codec.ParseTuples(gotBody)
	assert.Equal(t, "0711000111", fields["MOBILENUMBER"])
}
