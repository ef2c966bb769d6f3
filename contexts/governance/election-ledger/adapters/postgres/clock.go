package postgresadapter

import "time"

// SystemClock reads UTC wall time truncated to the millisecond, the resolution
// of ledger block time, so stored event timestamps match block_time_ms.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
