package engine

import (
	"math"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

// StepLoad is the state of every segment at one observed step, in network
// segment order.
type StepLoad struct {
	Time      float64
	Vehicles  []int
	MeanSpeed []float64
}

// DeriveLoads rebuilds per-step segment loads from trip records. A vehicle
// counts on segment i at step t when entry_i <= t < exit_i, where entry_0 is
// its departure and entry_i the previous exit; a segment never exited is held
// until the last step. This matches what Meso reports after each Step.
func DeriveLoads(net *network.Network, info *RouteInfo) []StepLoad {
	segs := net.Segments()
	index := make(map[string]int, len(segs))
	for i, s := range segs {
		index[s.ID] = i
	}
	steps := info.Steps
	if steps <= 0 {
		return nil
	}

	// difference arrays over [segment][step]
	counts := make([][]int, len(segs))
	speeds := make([][]float64, len(segs))
	for i := range segs {
		counts[i] = make([]int, steps+1)
		speeds[i] = make([]float64, steps+1)
	}

	for _, trip := range info.Trips {
		entry := trip.Depart
		for i, segID := range trip.Segments {
			si, ok := index[segID]
			if !ok {
				continue
			}
			s := segs[si]
			exit := math.Inf(1)
			speed := s.Speed
			if i < len(trip.ExitTimes) {
				exit = trip.ExitTimes[i]
				if d := exit - entry; d > 0 {
					speed = math.Min(s.Length/d, s.Speed)
				}
			}
			from := firstStepAtOrAfter(info.Start, entry, steps)
			to := firstStepAtOrAfter(info.Start, exit, steps)
			if from < to {
				counts[si][from]++
				counts[si][to]--
				speeds[si][from] += speed
				speeds[si][to] -= speed
			}
			entry = exit
		}
	}

	loads := make([]StepLoad, steps)
	runningCount := make([]int, len(segs))
	runningSpeed := make([]float64, len(segs))
	for k := 0; k < steps; k++ {
		load := StepLoad{
			Time:      info.Start + float64(k),
			Vehicles:  make([]int, len(segs)),
			MeanSpeed: make([]float64, len(segs)),
		}
		for si, s := range segs {
			runningCount[si] += counts[si][k]
			runningSpeed[si] += speeds[si][k]
			load.Vehicles[si] = runningCount[si]
			if runningCount[si] > 0 {
				load.MeanSpeed[si] = runningSpeed[si] / float64(runningCount[si])
			} else {
				load.MeanSpeed[si] = s.Speed
			}
		}
		loads[k] = load
	}
	return loads
}

// firstStepAtOrAfter is the smallest k in [0, steps] with start+k >= x.
func firstStepAtOrAfter(start, x float64, steps int) int {
	if math.IsInf(x, 1) {
		return steps
	}
	k := int(math.Ceil(x - start))
	if k < 0 {
		k = 0
	}
	for k > 0 && start+float64(k-1) >= x {
		k--
	}
	for k < steps && start+float64(k) < x {
		k++
	}
	if k > steps {
		k = steps
	}
	return k
}
