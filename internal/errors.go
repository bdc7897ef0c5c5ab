// Error taxonomy for the core.

package minitimer_internal

import "fmt"

// ErrInvalidFrequency is returned when a caller-supplied FrequencySpec
// cannot produce a valid firing sequence: a zero period or count, an
// overflowing first timestamp, or an absolute timestamp that is not strictly
// in the future. It is only ever returned synchronously at task-build time
// (NewFrequencyState / TaskBuilder.Build), never from Add or Tick.
var ErrInvalidFrequency = fmt.Errorf("invalid frequency")

// invalidFrequencyf wraps ErrInvalidFrequency with a reason, so callers can
// still match on errors.Is(err, ErrInvalidFrequency).
func invalidFrequencyf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFrequency, fmt.Sprintf(format, args...))
}
