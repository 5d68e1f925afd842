package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Window is one supervised example: L flattened history rows and a K*H label vector
type Window struct {
	WindowID       string      `json:"window_id"`
	AnchorIndex    int         `json:"anchor_index"` // index i of the anchor row in the series
	AnchorYear     int         `json:"anchor_year"`
	SequenceLength int         `json:"sequence_length"`
	Horizon        int         `json:"horizon"`
	FeatureVersion int         `json:"feature_version"`
	Input          [][]float64 `json:"input"` // rows[i-L..i-1], each platforms*features long
	Label          []float64   `json:"label"` // bit p*H+o is 1 iff global(p) rises at offset o+1
}

// GenerateWindowID creates a deterministic window ID based on key parameters
// Format: hash(platforms|anchor_year|L|H|feature_version)
func GenerateWindowID(platforms []string, anchorYear, l, h, featureVersion int) string {
	data := fmt.Sprintf("%s|%d|%d|%d|%d",
		strings.Join(platforms, ","),
		anchorYear,
		l,
		h,
		featureVersion,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// NewWindow creates a new Window with generated ID
func NewWindow(platforms []string, anchorIndex, anchorYear, h, featureVersion int, input [][]float64, label []float64) *Window {
	return &Window{
		WindowID:       GenerateWindowID(platforms, anchorYear, len(input), h, featureVersion),
		AnchorIndex:    anchorIndex,
		AnchorYear:     anchorYear,
		SequenceLength: len(input),
		Horizon:        h,
		FeatureVersion: featureVersion,
		Input:          input,
		Label:          label,
	}
}

// IsComplete returns true if the window has the expected number of history steps
func (w *Window) IsComplete() bool {
	return len(w.Input) == w.SequenceLength && w.SequenceLength > 0
}

// Flatten concatenates the history steps into a single vector
func (w *Window) Flatten() []float64 {
	if len(w.Input) == 0 {
		return nil
	}
	out := make([]float64, 0, len(w.Input)*len(w.Input[0]))
	for _, step := range w.Input {
		out = append(out, step...)
	}
	return out
}

// LastStep returns the most recent history step
func (w *Window) LastStep() []float64 {
	if len(w.Input) == 0 {
		return nil
	}
	return w.Input[len(w.Input)-1]
}
