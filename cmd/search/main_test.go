package main

import (
	"testing"

	"github.com/tunogya/gametrend/pkg/feature"
	"github.com/tunogya/gametrend/pkg/model"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	layout := feature.NewLayout([]string{"Wii", "DS"}, 2)
	w := &model.Window{Label: []float64{1, 0, 0, 1}}

	if got := outcome(w, layout); got != "Wii:+- DS:-+" {
		t.Errorf("outcome() = %q", got)
	}
	if got := outcome(nil, layout); got == "" {
		t.Error("missing window should be reported")
	}
}
