// Package sim holds the seeded randomness shared by the road pricing testbed.
//
// # Reading Guide
//
// The episode loop lives in sim/experiment; start there:
//   - experiment/experiment.go: the Idle → Preparing → Simulating → Collecting → Adjusting cycle
//   - experiment/collect.go: re-deriving loads, users and driver outcomes from trip records
//   - pricing/manager.go: per-segment policies and the committed/next price split
//
// # Architecture
//
// Sub-packages, bottom-up:
//   - sim/network/: road topology, districts and the speed board
//   - sim/search/: shortest paths (Dijkstra and A*) over segment-to-segment edges
//   - sim/engine/: the Engine boundary, the in-process Meso engine and trip records
//   - sim/driver/: drivers, knowledge bases, edge evaluators and preference generators
//   - sim/demand/: auxiliary vehicles (uniform or OD matrix)
//   - sim/pricing/: static, greedy, incremental and Q-learning link pricing
//   - sim/stats/: per-episode CSV statistics
//   - sim/trace/: price and route decision traces
//   - sim/observability/: Prometheus metrics and OpenTelemetry spans
//   - sim/experiment/: the closed pricing loop
//
// # Determinism
//
// Every random draw comes from a PartitionedRNG stream derived from the
// experiment seed. Streams are isolated by subsystem name, so adding draws in
// one subsystem never shifts another. Auxiliary demand uses one stream per
// episode, which lets an experiment resume at any episode and still reproduce
// the demand a full run would have generated.
package sim
