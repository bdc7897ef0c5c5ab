// Frequency state machine: the lazy sequence of future firing timestamps
// for a single task.

package minitimer_internal

const (
	FREQUENCY_ONCE_DEFAULT_SECONDS = 60
)

// FrequencyKind identifies which of the three FrequencySpec variants a state
// was built from.
type FrequencyKind int

const (
	FrequencyOnce FrequencyKind = iota
	FrequencyRepeated
	FrequencyCountDown
)

// FrequencySpec is the caller-facing configuration for a task's firing
// schedule; see TaskBuilder for how these are constructed.
type FrequencySpec struct {
	Kind          FrequencyKind
	PeriodSeconds uint64
	// Only meaningful for FrequencyCountDown:
	Remaining uint64
	// Only meaningful for FrequencyOnce when built via OnceAt: an absolute
	// epoch-second timestamp rather than a delay. Zero means "use
	// PeriodSeconds as a delay from now" instead.
	AbsoluteAt uint64
}

func DefaultFrequencySpec() FrequencySpec {
	return FrequencySpec{Kind: FrequencyOnce, PeriodSeconds: FREQUENCY_ONCE_DEFAULT_SECONDS}
}

// FrequencyState is a lazy, infinite (Repeated) or finite (Once: a single
// timestamp; CountDown) sequence of absolute epoch-second timestamps. It is represented as plain
// "next"/"step"/"remaining" counters rather than an actual iterator type,
// per the core's lazy-sequence design note: the wheel only ever asks "what's
// next?".
type FrequencyState struct {
	kind FrequencyKind
	// The next timestamp to be returned by Peek/Advance; meaningless once
	// the sequence is exhausted (done == true).
	next uint64
	step uint64
	// remaining is only decremented for FrequencyCountDown; it is ignored
	// for Once/Repeated.
	remaining uint64
	done      bool
}

// NewFrequencyState constructs the state for spec, anchored at now (an
// absolute epoch-second timestamp, normally time.Now().Unix()).
func NewFrequencyState(spec FrequencySpec, now uint64) (*FrequencyState, error) {
	switch spec.Kind {
	case FrequencyOnce:
		period := spec.PeriodSeconds
		if period == 0 {
			return nil, invalidFrequencyf("once: period_seconds must be > 0")
		}
		first := spec.AbsoluteAt
		if first == 0 {
			var ok bool
			first, ok = addOverflowSafe(now, period)
			if !ok {
				return nil, invalidFrequencyf("once: now+period overflows")
			}
		} else if first <= now {
			return nil, invalidFrequencyf("once: absolute timestamp %d is not strictly after now (%d)", first, now)
		}
		return &FrequencyState{kind: FrequencyOnce, next: first, step: period}, nil

	case FrequencyRepeated:
		period := spec.PeriodSeconds
		if period == 0 {
			return nil, invalidFrequencyf("repeated: period_seconds must be > 0")
		}
		first, ok := addOverflowSafe(now, period)
		if !ok {
			return nil, invalidFrequencyf("repeated: now+period overflows")
		}
		return &FrequencyState{kind: FrequencyRepeated, next: first, step: period}, nil

	case FrequencyCountDown:
		period := spec.PeriodSeconds
		if period == 0 {
			return nil, invalidFrequencyf("countdown: period_seconds must be > 0")
		}
		if spec.Remaining == 0 {
			return nil, invalidFrequencyf("countdown: remaining must be > 0")
		}
		first, ok := addOverflowSafe(now, period)
		if !ok {
			return nil, invalidFrequencyf("countdown: now+period overflows")
		}
		return &FrequencyState{
			kind:      FrequencyCountDown,
			next:      first,
			step:      period,
			remaining: spec.Remaining,
		}, nil

	default:
		return nil, invalidFrequencyf("unknown frequency kind %d", spec.Kind)
	}
}

func addOverflowSafe(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Peek returns the next firing timestamp without consuming it.
func (fs *FrequencyState) Peek() (uint64, bool) {
	if fs == nil || fs.done {
		return 0, false
	}
	return fs.next, true
}

// Advance returns the next firing timestamp and consumes it, arming the
// following one. For FrequencyCountDown, remaining is decremented
// (saturating at 0) and the sequence becomes exhausted once it reaches 0.
func (fs *FrequencyState) Advance() (uint64, bool) {
	if fs == nil || fs.done {
		return 0, false
	}
	ts := fs.next

	switch fs.kind {
	case FrequencyCountDown:
		if fs.remaining <= 1 {
			fs.remaining = 0
			fs.done = true
		} else {
			fs.remaining--
			next, ok := addOverflowSafe(fs.next, fs.step)
			if !ok {
				fs.done = true
			} else {
				fs.next = next
			}
		}
	case FrequencyOnce:
		// A single firing: the sequence is exhausted after the first
		// Advance, regardless of what the executor does with the result.
		fs.done = true
	case FrequencyRepeated:
		next, ok := addOverflowSafe(fs.next, fs.step)
		if !ok {
			fs.done = true
		} else {
			fs.next = next
		}
	}

	return ts, true
}

// Remaining reports the number of firings left for FrequencyCountDown, or
// (-1, false) for the infinite Repeated sequence. Once is reported as a
// countdown of 1 firing (0 after its sole Advance), which matches its
// "single-element Repeated" semantics (see design notes). A nil state
// reports (0, true).
func (fs *FrequencyState) Remaining() (int64, bool) {
	if fs == nil {
		return 0, true
	}
	switch fs.kind {
	case FrequencyCountDown:
		return int64(fs.remaining), true
	case FrequencyOnce:
		if fs.done {
			return 0, true
		}
		return 1, true
	default:
		return -1, false
	}
}

// Done reports whether the sequence is exhausted.
func (fs *FrequencyState) Done() bool {
	return fs == nil || fs.done
}

// Kind reports which FrequencySpec variant this state was built from.
func (fs *FrequencyState) Kind() FrequencyKind {
	if fs == nil {
		return FrequencyOnce
	}
	return fs.kind
}
