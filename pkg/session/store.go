package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dario.cat/mergo"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/kv"
)

// Store implements the composite-keyed session CRUD and slot operations
// described for the conversational state store. It holds no in-memory
// state of its own; every read touches pkg/kv.
type Store struct {
	kv     *kv.Store
	prefix string
	ttl    time.Duration
}

// NewStore returns a session store backed by kvStore. prefix is typically
// "ussd:session" and ttl the configured session TTL (default 300s).
func NewStore(kvStore *kv.Store, prefix string, ttl time.Duration) *Store {
	return &Store{kv: kvStore, prefix: prefix, ttl: ttl}
}

// Create builds and persists the default session record for a triple,
// overwriting any record that already exists (the aggregator issuing a new
// sessionId means a fresh conversation).
func (s *Store) Create(ctx context.Context, msisdn, sessionID, shortcode string) (*Session, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)
	now := time.Now()

	rec := newDefault(now)
	rec.CreatedAtMillis = now.UnixMilli()

	if err := s.put(ctx, key, rec); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}

	if err := s.kv.Set(ctx, startKey(key), []byte(strconv.FormatInt(rec.CreatedAtMillis, 10)), s.ttl); err != nil {
		return nil, fmt.Errorf("session: create start anchor: %w", err)
	}

	logger.Debug("session created", logFields(msisdn, sessionID, shortcode)...)

	return rec, nil
}

// Get returns the session for a triple, refreshing its TTL on a hit. The
// ":start" anchor is left untouched so CreatedAtMillis-derived elapsed time
// stays meaningful across the session's life.
func (s *Store) Get(ctx context.Context, msisdn, sessionID, shortcode string) (*Session, bool, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	rec, err := s.get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: get: %w", err)
	}

	// Refresh TTL by rewriting the same value.
	if err := s.put(ctx, key, rec); err != nil {
		return nil, false, fmt.Errorf("session: get: refresh ttl: %w", err)
	}

	return rec, true, nil
}

// Update reads the current session, deep-merges patch into it (object
// fields merge, array fields in patch replace wholesale), sets
// LastActivity, and writes the result back with a refreshed TTL.
func (s *Store) Update(ctx context.Context, msisdn, sessionID, shortcode string, patch map[string]any) (*Session, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	current, err := s.get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("session: update: %w", err)
	}

	merged, err := deepMerge(current, patch)
	if err != nil {
		return nil, fmt.Errorf("session: update: merge: %w", err)
	}
	merged.LastActivity = time.Now()

	if err := s.put(ctx, key, merged); err != nil {
		return nil, fmt.Errorf("session: update: %w", err)
	}

	return merged, nil
}

// Clear deletes the session key and its start anchor. Slots are left to
// expire by TTL rather than enumerated and deleted individually.
func (s *Store) Clear(ctx context.Context, msisdn, sessionID, shortcode string) error {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	if err := s.kv.Del(ctx, key); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	if err := s.kv.Del(ctx, startKey(key)); err != nil {
		return fmt.Errorf("session: clear start anchor: %w", err)
	}
	logger.Debug("session cleared", logFields(msisdn, sessionID, shortcode)...)
	return nil
}

// ElapsedSeconds returns the time elapsed since the session's start anchor
// was written, or 0 if there is no anchor (already expired or never created).
func (s *Store) ElapsedSeconds(ctx context.Context, msisdn, sessionID, shortcode string) (float64, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	raw, err := s.kv.Get(ctx, startKey(key))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("session: elapsedSeconds: %w", err)
	}

	startMillis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session: elapsedSeconds: corrupt anchor: %w", err)
	}

	return float64(time.Now().UnixMilli()-startMillis) / 1000.0, nil
}

// IncrementTransactionCount bumps TransactionCount and LastTransaction.
func (s *Store) IncrementTransactionCount(ctx context.Context, msisdn, sessionID, shortcode string) (*Session, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	current, err := s.get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("session: incrementTransactionCount: %w", err)
	}

	current.TransactionCount++
	current.LastTransaction = time.Now()
	current.LastActivity = current.LastTransaction

	if err := s.put(ctx, key, current); err != nil {
		return nil, fmt.Errorf("session: incrementTransactionCount: %w", err)
	}

	return current, nil
}

// Healthy probes the underlying KV store.
func (s *Store) Healthy() bool {
	return s.kv.Healthy()
}

// ----------------------------------------------------------------------------
// Slots
// ----------------------------------------------------------------------------

// StoreSlot writes value (JSON-serialized) under slot, alongside the
// session's TTL.
func (s *Store) StoreSlot(ctx context.Context, msisdn, sessionID, shortcode, slot string, value any) error {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: store slot %q: %w", slot, err)
	}

	if err := s.kv.Set(ctx, slotKey(key, slot), payload, s.ttl); err != nil {
		return fmt.Errorf("session: store slot %q: %w", slot, err)
	}
	return nil
}

// GrabSlot reads slot into out. Returns false (no error) if the slot is
// absent.
func (s *Store) GrabSlot(ctx context.Context, msisdn, sessionID, shortcode, slot string, out any) (bool, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)

	raw, err := s.kv.Get(ctx, slotKey(key, slot))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: grab slot %q: %w", slot, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("session: grab slot %q: %w", slot, err)
	}
	return true, nil
}

// PossessSlot reports whether slot exists, without decoding its value.
func (s *Store) PossessSlot(ctx context.Context, msisdn, sessionID, shortcode, slot string) (bool, error) {
	key := Key(s.prefix, msisdn, sessionID, shortcode)
	ok, err := s.kv.Exists(ctx, slotKey(key, slot))
	if err != nil {
		return false, fmt.Errorf("session: possess slot %q: %w", slot, err)
	}
	return ok, nil
}

// BlankSlots deletes the named slots. Deleting an absent slot is not an error.
func (s *Store) BlankSlots(ctx context.Context, msisdn, sessionID, shortcode string, slots ...string) error {
	key := Key(s.prefix, msisdn, sessionID, shortcode)
	for _, slot := range slots {
		if err := s.kv.Del(ctx, slotKey(key, slot)); err != nil {
			return fmt.Errorf("session: blank slot %q: %w", slot, err)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// internal helpers
// ----------------------------------------------------------------------------

func (s *Store) get(ctx context.Context, key string) (*Session, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec Session
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &rec, nil
}

func (s *Store) put(ctx context.Context, key string, rec *Session) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, payload, s.ttl)
}

// deepMerge applies patch onto current using object-merge, array-replace
// semantics and returns a new Session. current and the result of the merge
// round-trip through map[string]any so that nested object fields (such as
// customerData) merge key-by-key instead of being replaced wholesale, while
// mergo.WithOverride makes any leaf value in patch -- including slices --
// win over the corresponding value in current.
func deepMerge(current *Session, patch map[string]any) (*Session, error) {
	currentBytes, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}

	var dst map[string]any
	if err := json.Unmarshal(currentBytes, &dst); err != nil {
		return nil, err
	}

	if err := mergo.Merge(&dst, patch, mergo.WithOverride); err != nil {
		return nil, err
	}

	mergedBytes, err := json.Marshal(dst)
	if err != nil {
		return nil, err
	}

	var merged Session
	if err := json.Unmarshal(mergedBytes, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// logFields returns the structured logging attrs for a session triple.
func logFields(msisdn, sessionID, shortcode string) []any {
	return []any{logger.KeySessionID, sessionID, logger.KeyShortcode, shortcode, logger.KeyMSISDN, msisdn}
}
