package simulator

// Pit wall recommendations shown alongside the user car's snapshot.
const (
	RecommendBoxForWets   = "BOX FOR WETS"
	RecommendBoxForInters = "BOX FOR INTERS"
	RecommendConsiderBox  = "CONSIDER BOX"
	RecommendStayOut      = "STAY OUT"
)

const oracleTyreAgeThreshold = 20

// Recommend is a simple pit wall heuristic based on the current tyre and
// track condition. Purely advisory; it never drives the simulation.
func Recommend(tyre TyreState, condition TrackCondition) string {
	switch condition {
	case ConditionWet:
		if tyre.Compound != CompoundWet {
			return RecommendBoxForWets
		}
	case ConditionDamp:
		if tyre.Compound != CompoundIntermediate && tyre.Compound != CompoundWet {
			return RecommendBoxForInters
		}
	}

	if tyre.Age > oracleTyreAgeThreshold {
		return RecommendConsiderBox
	}

	return RecommendStayOut
}
