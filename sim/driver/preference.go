package driver

import (
	"fmt"
	"math/rand"

	"github.com/samber/lo"
)

// PreferenceGenerator draws a preference in [0,1].
type PreferenceGenerator func(rng *rand.Rand) float64

// ValidPreferenceGenerators lists the names accepted by NewPreferenceGenerator.
var ValidPreferenceGenerators = map[string]bool{
	"balanced":   true,
	"time-money": true,
	"uniform":    true,
	"gaussian":   true,
}

// IsValidPreferenceGenerator returns true if name is a recognized generator.
func IsValidPreferenceGenerator(name string) bool {
	return ValidPreferenceGenerators[name]
}

// NewPreferenceGenerator returns the named generator. Panics on unknown names.
func NewPreferenceGenerator(name string) PreferenceGenerator {
	switch name {
	case "balanced":
		return func(*rand.Rand) float64 { return 0.5 }
	case "time-money":
		return func(rng *rand.Rand) float64 { return float64(rng.Intn(2)) }
	case "uniform":
		return func(rng *rand.Rand) float64 { return rng.Float64() }
	case "gaussian":
		return func(rng *rand.Rand) float64 {
			return lo.Clamp(rng.NormFloat64()*0.15+0.5, 0, 1)
		}
	default:
		panic(fmt.Sprintf("unknown preference generator %q", name))
	}
}
