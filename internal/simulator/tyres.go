package simulator

import (
	"strings"
	"time"
)

// TyreCompound names follow the official race weekend allocation.
type TyreCompound string

const (
	CompoundSoft         TyreCompound = "SOFT"
	CompoundMedium       TyreCompound = "MEDIUM"
	CompoundHard         TyreCompound = "HARD"
	CompoundIntermediate TyreCompound = "INTERMEDIATE"
	CompoundWet          TyreCompound = "WET"
)

// ParseTyreCompound normalises a compound name from an archive or an API
// request. Unknown names fall back to CompoundMedium.
func ParseTyreCompound(s string) TyreCompound {
	compound := TyreCompound(strings.ToUpper(strings.TrimSpace(s)))

	switch compound {
	case CompoundSoft, CompoundMedium, CompoundHard, CompoundIntermediate, CompoundWet:
		return compound
	default:
		return CompoundMedium
	}
}

// DrivingMode trades pace against tyre wear. PUSH gains lap time at the cost
// of accelerated wear, SAVE gives lap time back to preserve the tyre.
type DrivingMode uint8

const (
	ModeNormal DrivingMode = iota
	ModePush
	ModeSave
)

func (m DrivingMode) String() string {
	switch m {
	case ModePush:
		return "PUSH"
	case ModeNormal:
		return "NORMAL"
	case ModeSave:
		return "SAVE"
	default:
		return "Unknown Mode"
	}
}

func ParseDrivingMode(s string) (DrivingMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PUSH":
		return ModePush, true
	case "NORMAL":
		return ModeNormal, true
	case "SAVE":
		return ModeSave, true
	default:
		return ModeNormal, false
	}
}

// TyreState is the user car's live tyre. Age is the effective number of laps
// on the set (scaled by driving mode), Degradation runs 0 (new) to 1 (dead).
// Both reset only on a completed pit stop.
type TyreState struct {
	Compound    TyreCompound `json:"compound"`
	Age         float64      `json:"age"`
	Degradation float64      `json:"degradation"`
}

type compoundSpec struct {
	wearRate  float64       // degradation added per lap at NORMAL on a fresh set
	paceDelta time.Duration // lap time offset vs a fresh soft
	cliff     float64       // degradation past which lap time falls away steeply
}

var compoundSpecs = map[TyreCompound]compoundSpec{
	CompoundSoft:         {wearRate: 0.035, paceDelta: 0, cliff: 0.6},
	CompoundMedium:       {wearRate: 0.025, paceDelta: 500 * time.Millisecond, cliff: 0.6},
	CompoundHard:         {wearRate: 0.018, paceDelta: 1100 * time.Millisecond, cliff: 0.6},
	CompoundIntermediate: {wearRate: 0.030, paceDelta: 2 * time.Second, cliff: 0.5},
	CompoundWet:          {wearRate: 0.022, paceDelta: 4500 * time.Millisecond, cliff: 0.5},
}

type modeSpec struct {
	paceDelta      time.Duration
	wearMultiplier float64
}

var modeSpecs = map[DrivingMode]modeSpec{
	ModePush:   {paceDelta: -400 * time.Millisecond, wearMultiplier: 1.6},
	ModeNormal: {paceDelta: 0, wearMultiplier: 1.0},
	ModeSave:   {paceDelta: 700 * time.Millisecond, wearMultiplier: 0.6},
}

const (
	// lap time lost per unit of degradation, below and above the cliff
	degradationPaceBeforeCliff = 2 * time.Second
	degradationPaceAfterCliff  = 10 * time.Second

	maxDegradation = 0.99
)

// EvaluateLap is the tyre physics model: it maps the tyre entering a lap, the
// active driving mode and the weather pace penalty to the lap time delta over
// the session's base lap time, and to the tyre state leaving the lap.
//
// It is a pure function; the same inputs always produce the same outputs.
// weatherPenalty is a multiplicative factor >= 1 applied to the lap time
// delta only - weather affects pace, never wear.
func EvaluateLap(tyre TyreState, mode DrivingMode, weatherPenalty float64) (time.Duration, TyreState) {
	spec, ok := compoundSpecs[tyre.Compound]

	if !ok {
		spec = compoundSpecs[CompoundMedium]
	}

	m, ok := modeSpecs[mode]

	if !ok {
		m = modeSpecs[ModeNormal]
	}

	var wearPenalty time.Duration

	if tyre.Degradation < spec.cliff {
		wearPenalty = time.Duration(tyre.Degradation * float64(degradationPaceBeforeCliff))
	} else {
		wearPenalty = time.Duration(spec.cliff*float64(degradationPaceBeforeCliff) +
			(tyre.Degradation-spec.cliff)*float64(degradationPaceAfterCliff))
	}

	delta := time.Duration(float64(m.paceDelta+spec.paceDelta+wearPenalty) * weatherPenalty)

	// wear accelerates as the tyre ages
	increment := spec.wearRate * m.wearMultiplier * (1.0 + 1.5*tyre.Degradation)

	next := TyreState{
		Compound:    tyre.Compound,
		Age:         tyre.Age + m.wearMultiplier,
		Degradation: tyre.Degradation + increment,
	}

	if next.Degradation > maxDegradation {
		next.Degradation = maxDegradation
	}

	return delta, next
}
