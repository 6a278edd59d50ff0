package detector

// Preset hands for tests and the dry-run mode. Coordinates are chosen so the finger
// extension rule (tip above the joint two indices lower) is unambiguous.

// FistHand returns a closed hand with no finger extended and the thumb tucked in.
func FistHand() Hand {
	h := Hand{Handedness: "Right", Score: 0.95}

	h.Landmarks[Wrist] = Landmark{X: 0.50, Y: 0.80}

	h.Landmarks[ThumbCMC] = Landmark{X: 0.45, Y: 0.75}
	h.Landmarks[ThumbMCP] = Landmark{X: 0.42, Y: 0.70}
	h.Landmarks[ThumbIP] = Landmark{X: 0.43, Y: 0.72}
	h.Landmarks[ThumbTip] = Landmark{X: 0.45, Y: 0.74}

	curl := func(mcp int, x, y float64) {
		h.Landmarks[mcp] = Landmark{X: x, Y: y}
		h.Landmarks[mcp+1] = Landmark{X: x, Y: y - 0.04}
		h.Landmarks[mcp+2] = Landmark{X: x, Y: y}
		h.Landmarks[mcp+3] = Landmark{X: x, Y: y + 0.04}
	}
	curl(IndexMCP, 0.47, 0.62)
	curl(MiddleMCP, 0.50, 0.61)
	curl(RingMCP, 0.53, 0.62)
	curl(PinkyMCP, 0.56, 0.64)

	return h
}

// OpenHand returns a hand with all five fingers extended and the thumb angled only
// slightly outward, so it never reads as a swipe.
func OpenHand() Hand {
	h := Hand{Handedness: "Right", Score: 0.97}

	h.Landmarks[Wrist] = Landmark{X: 0.50, Y: 0.80}

	h.Landmarks[ThumbCMC] = Landmark{X: 0.45, Y: 0.75}
	h.Landmarks[ThumbMCP] = Landmark{X: 0.42, Y: 0.70}
	h.Landmarks[ThumbIP] = Landmark{X: 0.38, Y: 0.64}
	h.Landmarks[ThumbTip] = Landmark{X: 0.36, Y: 0.60}

	extend := func(mcp int, x float64) {
		h.Landmarks[mcp] = Landmark{X: x, Y: 0.62}
		h.Landmarks[mcp+1] = Landmark{X: x, Y: 0.52}
		h.Landmarks[mcp+2] = Landmark{X: x, Y: 0.45}
		h.Landmarks[mcp+3] = Landmark{X: x, Y: 0.40}
	}
	extend(IndexMCP, 0.46)
	extend(MiddleMCP, 0.50)
	extend(RingMCP, 0.54)
	extend(PinkyMCP, 0.58)

	return h
}

// ThumbSideways returns a fist whose thumb tip sits dx to the side of the thumb MCP.
// Positive dx points toward larger x.
func ThumbSideways(dx float64) Hand {
	h := FistHand()
	mcp := h.Landmarks[ThumbMCP]
	h.Landmarks[ThumbIP] = Landmark{X: mcp.X + dx/2, Y: mcp.Y + 0.01}
	h.Landmarks[ThumbTip] = Landmark{X: mcp.X + dx, Y: mcp.Y + 0.02}
	return h
}

// SpanHand returns a hand with only the thumb and pinky extended, their tips level and
// span apart horizontally.
func SpanHand(span float64) Hand {
	h := FistHand()

	h.Landmarks[ThumbMCP] = Landmark{X: 0.30, Y: 0.60}
	h.Landmarks[ThumbIP] = Landmark{X: 0.30, Y: 0.55}
	h.Landmarks[ThumbTip] = Landmark{X: 0.30, Y: 0.50}

	h.Landmarks[PinkyPIP] = Landmark{X: 0.30 + span, Y: 0.55}
	h.Landmarks[PinkyDIP] = Landmark{X: 0.30 + span, Y: 0.52}
	h.Landmarks[PinkyTip] = Landmark{X: 0.30 + span, Y: 0.50}

	return h
}
