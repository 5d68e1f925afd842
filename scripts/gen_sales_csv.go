package main

import (
	"cmp"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/tunogya/gametrend/pkg/data"
	"github.com/tunogya/gametrend/pkg/logging"
	"github.com/tunogya/gametrend/pkg/model"
)

// lifecycle shapes yearly sales of a platform as a bell around its peak
type lifecycle struct {
	name   string
	launch int
	peak   int
	retire int
	scale  float64
}

var platforms = []lifecycle{
	{"PS2", 2000, 2004, 2011, 9},
	{"DS", 2004, 2007, 2013, 8},
	{"Wii", 2006, 2008, 2013, 10},
	{"X360", 2005, 2010, 2016, 7},
	{"PS3", 2006, 2011, 2016, 7},
	{"PS4", 2013, 2017, 2020, 8},
	{"3DS", 2011, 2013, 2019, 5},
	{"PC", 1995, 2012, 2020, 3},
}

var genres = []string{"Action", "Sports", "Shooter", "Platform", "Racing", "Role-Playing", "Misc", "Puzzle", "Simulation"}

var publishers = []string{"Nintendo", "Electronic Arts", "Activision", "Sony Computer Entertainment", "Ubisoft", "Take-Two Interactive"}

// regional share of global sales: NA, EU, JP, Other
var regions = [4]float64{0.45, 0.3, 0.12, 0.13}

func main() {
	output := flag.String("output", "data/vgsales_synthetic.csv", "Output CSV file path")
	titles := flag.Int("titles", 12, "Titles per platform and year at peak")
	seed := flag.Uint64("seed", 42, "Random seed")
	flag.Parse()

	records := generate(rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)), *titles)

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create output directory")
	}
	f, err := os.Create(*output)
	if err != nil {
		logging.Fatal().Err(err).Str("path", *output).Msg("Failed to create output file")
	}
	defer f.Close()

	if err := data.WriteCSV(f, records); err != nil {
		logging.Fatal().Err(err).Msg("Failed to write CSV")
	}

	logging.Info().Int("records", len(records)).Str("path", *output).Msg("Synthetic sales written")
}

func generate(rng *rand.Rand, perYear int) []model.SalesRecord {
	var records []model.SalesRecord
	for _, p := range platforms {
		width := float64(max(p.retire-p.launch, 1)) / 2.5
		for year := p.launch; year <= p.retire; year++ {
			d := float64(year-p.peak) / width
			strength := math.Exp(-d * d / 2)
			n := max(1, int(math.Round(float64(perYear)*strength)))
			for i := 0; i < n; i++ {
				global := p.scale * strength * rng.ExpFloat64() * 0.3
				r := model.SalesRecord{
					Name:        fmt.Sprintf("%s Title %d-%02d", p.name, year, i+1),
					Platform:    p.name,
					Year:        year,
					Genre:       genres[rng.IntN(len(genres))],
					Publisher:   publishers[rng.IntN(len(publishers))],
					GlobalSales: round2(global),
				}
				r.NASales = round2(global * jitter(rng, regions[0]))
				r.EUSales = round2(global * jitter(rng, regions[1]))
				r.JPSales = round2(global * jitter(rng, regions[2]))
				r.OtherSales = round2(global * jitter(rng, regions[3]))
				records = append(records, r)
			}
		}
	}

	// rank by global sales like the public chart
	slices.SortStableFunc(records, func(a, b model.SalesRecord) int {
		return cmp.Compare(b.GlobalSales, a.GlobalSales)
	})
	for i := range records {
		records[i].Rank = i + 1
	}
	return records
}

func jitter(rng *rand.Rand, share float64) float64 {
	return share * (0.7 + 0.6*rng.Float64())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
