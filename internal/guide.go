// CascadeGuide: the pre-computed address of a task within the three wheels.

package minitimer_internal

// WheelKind names which of the three wheels a task currently resides in.
type WheelKind int

const (
	SecondWheel WheelKind = iota
	MinuteWheel
	HourWheel
)

func (wk WheelKind) String() string {
	switch wk {
	case SecondWheel:
		return "second"
	case MinuteWheel:
		return "minute"
	case HourWheel:
		return "hour"
	default:
		return "unknown"
	}
}

// CascadeGuide is the address of a task within the wheels, computed once at
// placement time so that later cascades are pure lookups rather than
// recomputations. Invariant: if Hour != nil then Min != nil; Sec is always
// defined.
type CascadeGuide struct {
	Sec   uint64
	Min   *uint64
	Hour  *uint64
	Round uint64
}

// Arrived reports whether the guide addresses a slot in the seconds wheel
// only, i.e. the task is ready to fire as soon as the second hand reaches
// Sec.
func (g CascadeGuide) Arrived() bool {
	return g.Min == nil && g.Hour == nil
}

func ptr(v uint64) *uint64 { return &v }

// ComputeCascadeGuide computes the guide and the destination wheel for a
// task that should fire delta seconds from now, given the current hand
// positions (cs, cm, ch) of the second/minute/hour wheels.
func ComputeCascadeGuide(cs, cm, ch, delta uint64) (CascadeGuide, WheelKind) {
	totalSec := cs + delta
	secFinal := totalSec % 60
	minCarry := totalSec / 60

	totalMin := cm + minCarry
	minFinal := totalMin % 60
	hourCarry := totalMin / 60

	totalHour := ch + hourCarry
	hourFinal := totalHour % 24
	round := totalHour / 24

	if round > 0 || hourCarry > 0 {
		return CascadeGuide{
			Sec:   secFinal,
			Min:   ptr(minFinal),
			Hour:  ptr(hourFinal),
			Round: round,
		}, HourWheel
	}
	if minCarry > 0 {
		return CascadeGuide{
			Sec:  secFinal,
			Min:  ptr(minFinal),
			Hour: nil,
		}, MinuteWheel
	}
	return CascadeGuide{
		Sec:  secFinal,
		Min:  nil,
		Hour: nil,
	}, SecondWheel
}
