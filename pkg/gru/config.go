package gru

import "github.com/tunogya/gametrend/pkg/model"

// NoDropout disables dropout; a zero DropoutRate means the default
const NoDropout = -1

// Config contains the architecture and optimizer settings of the sequence model.
type Config struct {
	// Units are the widths of the two stacked GRU layers.
	// The first returns its full sequence, the second only the final step.
	// Default: {32, 16}.
	Units [2]int

	// DropoutRate is applied between the GRU layers at training time only.
	// Default: 0.2. Use NoDropout to turn it off.
	DropoutRate float64

	// LearningRate is the Adam step size.
	// Default: 0.001.
	LearningRate float64

	// Beta1, Beta2 and Epsilon are the Adam moment parameters.
	// Defaults: 0.9, 0.999, 1e-7.
	Beta1   float64
	Beta2   float64
	Epsilon float64

	// Seed for reproducible initialisation, dropout masks and batch order.
	// If 0, uses a default seed.
	Seed int64
}

// DefaultConfig returns the default model configuration.
func DefaultConfig() Config {
	return Config{
		Units:        [2]int{32, 16},
		DropoutRate:  0.2,
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		Seed:         42,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Units[0] <= 0 {
		c.Units[0] = d.Units[0]
	}
	if c.Units[1] <= 0 {
		c.Units[1] = d.Units[1]
	}
	switch {
	case c.DropoutRate < 0:
		c.DropoutRate = 0
	case c.DropoutRate == 0 || c.DropoutRate >= 1:
		c.DropoutRate = d.DropoutRate
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Beta1 <= 0 || c.Beta1 >= 1 {
		c.Beta1 = d.Beta1
	}
	if c.Beta2 <= 0 || c.Beta2 >= 1 {
		c.Beta2 = d.Beta2
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}

// TrainOptions controls a single training call.
type TrainOptions struct {
	// Epochs is the number of passes over the train partition.
	// Default: 50.
	Epochs int

	// BatchSize is the mini-batch size.
	// Default: 8.
	BatchSize int

	// NoShuffle keeps the batch order chronological. By default the train
	// partition is reshuffled every epoch; the partition itself never changes.
	NoShuffle bool

	// OnEpoch, if set, is called at every epoch boundary before the progress
	// record is yielded to the caller.
	OnEpoch func(model.Progress)
}

// DefaultTrainOptions returns the default training options.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:    50,
		BatchSize: 8,
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	d := DefaultTrainOptions()
	if o.Epochs <= 0 {
		o.Epochs = d.Epochs
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	return o
}
