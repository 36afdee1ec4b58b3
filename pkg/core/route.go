// pkg/core/route.go
package core

// FailureReason identifies why a route could not be produced.
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonInvalidDestination  FailureReason = "InvalidDestination"
	ReasonMuteZoneDestination FailureReason = "MuteZoneDestination"
	ReasonMuteZone            FailureReason = "MuteZone"
	ReasonSlopeExceeded       FailureReason = "SlopeExceeded"
)

// Message returns the user-facing text for a failure reason.
func (r FailureReason) Message() string {
	switch r {
	case ReasonInvalidDestination:
		return "This place has no location that can be navigated to."
	case ReasonMuteZoneDestination:
		return "Routes without music do not exist. This place is too far from your heart to reach."
	case ReasonMuteZone:
		return "The way there passes through a place you cannot bear to cross."
	case ReasonSlopeExceeded:
		return "The emotional terrain on the way is too steep to walk."
	default:
		return ""
	}
}

// SteepTerrainAdvisory is attached to routes accepted under the relaxed slope limit.
const SteepTerrainAdvisory = "The way is steep. Take it slowly."

// RouteResult is the outcome of one route computation.
type RouteResult struct {
	Valid       bool          `json:"valid"`
	Path        []Vec3        `json:"path"`
	Reason      FailureReason `json:"failureReason,omitempty"`
	Message     string        `json:"message,omitempty"`
	IsFallback  bool          `json:"isFallback"`
	Waypoints   []string      `json:"waypoints,omitempty"`
	TotalAngle  float64       `json:"totalAngle"`
	ComfortCost float64       `json:"comfortCost"`
	// UncomfortableSamples counts path samples near places in the uncomfortable tier.
	UncomfortableSamples int    `json:"uncomfortableSamples,omitempty"`
	Alternative          *Place `json:"alternative,omitempty"`
}

// Failed builds an invalid result with an empty path.
func Failed(reason FailureReason) RouteResult {
	return RouteResult{
		Valid:   false,
		Path:    []Vec3{},
		Reason:  reason,
		Message: reason.Message(),
	}
}
