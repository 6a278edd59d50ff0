package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// writeFrame sends one JPEG payload: a 4 byte big-endian length followed by the bytes.
func writeFrame(w io.Writer, jpeg []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

type handsResponse struct {
	Hands []rawHand `json:"hands"`
	Error string    `json:"error,omitempty"`
}

type rawHand struct {
	Points     []Landmark `json:"points"`
	Handedness string     `json:"handedness"`
	Score      float64    `json:"score"`
}

// readHands reads one JSON line from the service and returns the hands sorted by score.
//
// Hands with fewer than [NumLandmarks] points are dropped.
func readHands(r *bufio.Reader) ([]Hand, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var raw handsResponse
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", raw.Error)
	}

	hands := make([]Hand, 0, len(raw.Hands))
	for _, h := range raw.Hands {
		if len(h.Points) < NumLandmarks {
			continue
		}
		hand := Hand{Handedness: h.Handedness, Score: h.Score}
		copy(hand.Landmarks[:], h.Points)
		hands = append(hands, hand)
	}

	sort.SliceStable(hands, func(i, j int) bool { return hands[i].Score > hands[j].Score })
	return hands, nil
}
