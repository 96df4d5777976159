package airtime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/marmos91/ussdgw/pkg/kv"
)

// DailyAggregate tracks a per-MSISDN running total for the day, used to cap
// aggregate airtime spend regardless of how many sessions a caller opens.
// It is keyed by MSISDN rather than by session so the cap survives a
// session clear, and expires at local midnight.
type DailyAggregate struct {
	kv       *kv.Store
	location *time.Location
}

// NewDailyAggregate returns a tracker backed by kvStore, accounting days in
// loc (the gateway's configured timezone).
func NewDailyAggregate(kvStore *kv.Store, loc *time.Location) *DailyAggregate {
	return &DailyAggregate{kv: kvStore, location: loc}
}

// Total returns today's running total for msisdn, 0 if nothing spent yet.
func (d *DailyAggregate) Total(ctx context.Context, msisdn string) (int, error) {
	raw, err := d.kv.Get(ctx, d.key(msisdn))
	if err != nil {
		if err == kv.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	total, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("airtime: corrupt daily aggregate for %s: %w", msisdn, err)
	}
	return total, nil
}

// Add increments today's running total for msisdn by amount and returns the
// new total.
func (d *DailyAggregate) Add(ctx context.Context, msisdn string, amount int) (int, error) {
	total, err := d.Total(ctx, msisdn)
	if err != nil {
		return 0, err
	}
	total += amount

	if err := d.kv.Set(ctx, d.key(msisdn), []byte(strconv.Itoa(total)), d.ttlUntilMidnight()); err != nil {
		return 0, err
	}
	return total, nil
}

func (d *DailyAggregate) key(msisdn string) string {
	now := time.Now().In(d.location)
	return fmt.Sprintf("airtime_daily_%s_%s", now.Format("20060102"), msisdn)
}

func (d *DailyAggregate) ttlUntilMidnight() time.Duration {
	now := time.Now().In(d.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, d.location)
	return midnight.Sub(now)
}
