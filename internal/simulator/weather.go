package simulator

import (
	"sort"
	"time"
)

// TrackCondition is the sandbox weather state. Within one rain event the
// condition only moves DRY -> DAMP -> WET; drying back out is a separate
// explicit trigger.
type TrackCondition uint8

const (
	ConditionDry TrackCondition = iota
	ConditionDamp
	ConditionWet
)

func (c TrackCondition) String() string {
	switch c {
	case ConditionDry:
		return "DRY"
	case ConditionDamp:
		return "DAMP"
	case ConditionWet:
		return "WET"
	default:
		return "Unknown Condition"
	}
}

// PacePenalty is the lap time multiplier the tyre physics model applies on
// top of its own deltas. Always >= 1.
func (c TrackCondition) PacePenalty() float64 {
	switch c {
	case ConditionDamp:
		return 1.12
	case ConditionWet:
		return 1.30
	default:
		return 1.0
	}
}

type weatherEvent struct {
	at        time.Duration
	condition TrackCondition
}

// WeatherManager keeps the track condition as an ordered event log rather
// than a single mutable value, so that re-deriving the race from time zero
// sees the same condition at every cursor regardless of when the triggers
// were pulled.
//
// Sandbox weather affects only the user car's pace. Ghost lap times are real
// recorded history and already embed whatever weather actually happened, so
// scaling them would break the "ghosts are reality" contract.
type WeatherManager struct {
	events []weatherEvent
	logger Logger

	onChange func()
}

func NewWeatherManager(logger Logger) *WeatherManager {
	return &WeatherManager{
		events: []weatherEvent{{at: 0, condition: ConditionDry}},
		logger: logger,
	}
}

// OnChange registers a callback fired after every recorded transition. The
// timeline uses it to re-derive the race state under the new condition.
func (wm *WeatherManager) OnChange(fn func()) {
	wm.onChange = fn
}

// ActivateRain steps the condition one stage wetter at the given race time.
// At WET further activations are ignored.
func (wm *WeatherManager) ActivateRain(at time.Duration) {
	current := wm.ConditionAt(at)

	var next TrackCondition

	switch current {
	case ConditionDry:
		next = ConditionDamp
	case ConditionDamp:
		next = ConditionWet
	default:
		wm.logger.Debugf("Rain activated at %s but track is already %s", at, current)
		return
	}

	wm.record(at, next)
}

// ActivateDrying steps the condition one stage drier at the given race time.
func (wm *WeatherManager) ActivateDrying(at time.Duration) {
	current := wm.ConditionAt(at)

	var next TrackCondition

	switch current {
	case ConditionWet:
		next = ConditionDamp
	case ConditionDamp:
		next = ConditionDry
	default:
		wm.logger.Debugf("Drying activated at %s but track is already %s", at, current)
		return
	}

	wm.record(at, next)
}

// record keeps the log monotone in time: a trigger pulled after rewinding
// rewrites the (sandbox) future from that point.
func (wm *WeatherManager) record(at time.Duration, condition TrackCondition) {
	wm.logger.Infof("Track condition changes to %s at race time %s", condition, at)

	keep := wm.events[:0]

	for _, event := range wm.events {
		if event.at < at || event.at == 0 {
			keep = append(keep, event)
		}
	}

	wm.events = append(keep, weatherEvent{at: at, condition: condition})

	if wm.onChange != nil {
		wm.onChange()
	}
}

// ConditionAt returns the track condition in effect at the given race time.
func (wm *WeatherManager) ConditionAt(t time.Duration) TrackCondition {
	// events are sorted by time; find the last one at or before t
	idx := sort.Search(len(wm.events), func(i int) bool {
		return wm.events[i].at > t
	})

	if idx == 0 {
		return ConditionDry
	}

	return wm.events[idx-1].condition
}

// PenaltyAt returns the pace penalty multiplier in effect at the given race time.
func (wm *WeatherManager) PenaltyAt(t time.Duration) float64 {
	return wm.ConditionAt(t).PacePenalty()
}
