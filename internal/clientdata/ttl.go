package clientdata

import "time"

// TTL constants for cached provider data.
// These are added to now when storing to calculate expires_at.
const (
	TTLTickerValid   = 7 * 24 * time.Hour // Known symbols rarely disappear
	TTLTickerInvalid = time.Hour          // Retry unknown symbols sooner, they may be newly listed
	TTLHistory       = 6 * time.Hour      // Daily closes change once per session
)
