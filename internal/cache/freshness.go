package cache

import "time"

// Freshness selects how long a saved entry stays usable. Positive values are
// a time-to-live counted from the moment the entry was written.
type Freshness time.Duration

const (
	// UntilCleared keeps entries usable until they are explicitly removed.
	UntilCleared Freshness = -1
	// SameDay keeps entries usable until the local calendar day changes.
	SameDay Freshness = -2
)

// TTL builds a Freshness that expires d after the entry was saved. Zero and
// negative durations collapse to 0 and never count as fresh.
func TTL(d time.Duration) Freshness {
	// The sentinels live in the negative range, keep raw durations out of it.
	if d <= 0 {
		return 0
	}
	return Freshness(d)
}

func (f Freshness) String() string {
	switch f {
	case UntilCleared:
		return "until-cleared"
	case SameDay:
		return "same-day"
	}
	return time.Duration(f).String()
}

// fresh reports whether an entry stamped ts (seconds since the epoch) is
// still usable at now under f. An absent timestamp is never fresh.
func fresh(f Freshness, ts int64, now time.Time) bool {
	if ts <= 0 {
		return false
	}
	switch f {
	case UntilCleared:
		return true
	case SameDay:
		return sameDay(time.Unix(ts, 0), now)
	}
	ttl := int64(time.Duration(f) / time.Second)
	return now.Unix()-ts < ttl
}

// sameDay compares calendar days in local time, so an entry written at 23:59
// goes stale one minute later.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
