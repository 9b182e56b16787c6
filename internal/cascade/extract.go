package cascade

import (
	"cascade-bridge/internal/wire"
)

// Trajectory response layout: repeated field 1 = step; within a step,
// field 20 = planner_response; within that, field 1 = response and
// field 8 = modified_response.
const (
	respFieldCascadeID = 1
	respFieldStep      = 1
	stepFieldPlanner   = 20
	plannerFieldText   = 1
	plannerFieldEdited = 8
)

// cascadeIDFromResponse extracts the cascade id from a StartCascade
// response body. Empty when the response carries none.
func cascadeIDFromResponse(body []byte) string {
	frames := wire.Unframe(body)
	if len(frames) == 0 {
		return ""
	}
	return wire.FirstString(wire.Scan(frames[0]), respFieldCascadeID)
}

// plannerTextFromResponse walks every frame and trajectory step of a
// GetCascadeTrajectorySteps response and returns the last non-empty
// planner text. Within one step, modified_response takes precedence over
// response when both are set; the precedence is applied here so a future
// reconciliation policy has a single seam.
func plannerTextFromResponse(body []byte) string {
	var last string
	for _, frame := range wire.Unframe(body) {
		for _, field := range wire.Scan(frame) {
			if field.Num != respFieldStep || field.Wire != wire.TypeBytes {
				continue
			}
			if text := plannerTextFromStep(field.Bytes); text != "" {
				last = text
			}
		}
	}
	return last
}

func plannerTextFromStep(step []byte) string {
	var last string
	for _, field := range wire.Scan(step) {
		if field.Num != stepFieldPlanner || field.Wire != wire.TypeBytes {
			continue
		}
		planner := wire.Scan(field.Bytes)
		text := wire.FirstString(planner, plannerFieldText)
		if edited := wire.FirstString(planner, plannerFieldEdited); edited != "" {
			text = edited
		}
		if text != "" {
			last = text
		}
	}
	return last
}
