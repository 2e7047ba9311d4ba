package indicator

import "fmt"

// InsufficientHistoryError is returned when the candle buffer is shorter
// than Params.MinRows — the engine refuses to guess at warm-up values
// (spec §4.2).
type InsufficientHistoryError struct {
	Have, Want int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("indicator: insufficient history: have %d candles, want %d", e.Have, e.Want)
}

// InvalidDataError is returned when the buffer contains a non-increasing
// timestamp, a non-positive price, a high below the low, a negative
// volume, or a zero volume within the trailing window.
type InvalidDataError struct {
	Index  int
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("indicator: invalid data at index %d: %s", e.Index, e.Reason)
}
