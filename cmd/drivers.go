package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/roadpricing-sim/roadpricing-sim/sim"
	"github.com/roadpricing-sim/roadpricing-sim/sim/demand"
	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
)

var (
	convertRouteInfo  string
	convertPreference string
	convertSeed       int64
	convertOutput     string
	convertKeepAux    bool
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "Work with driver definition files",
}

var driversConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Derive a driver file from the trip records of an episode",
	Run: func(cmd *cobra.Command, args []string) {
		if !driver.IsValidPreferenceGenerator(convertPreference) {
			logrus.Fatalf("Unknown preference generator %q; valid: %v",
				convertPreference, lo.Keys(driver.ValidPreferenceGenerators))
		}
		out := io.Writer(os.Stdout)
		if convertOutput != "" {
			f, err := os.Create(convertOutput)
			if err != nil {
				logrus.Fatalf("Failed to create driver file: %v", err)
			}
			defer f.Close()
			out = f
		}
		n, err := convertTrips(out, convertRouteInfo, convertPreference, convertSeed, convertKeepAux)
		if err != nil {
			logrus.Fatalf("Conversion failed: %v", err)
		}
		logrus.Infof("Converted %d trips from %s", n, convertRouteInfo)
	},
}

// convertTrips writes one driver definition per recorded trip and returns how
// many were written. Auxiliary vehicles are dropped unless keepAux is set.
func convertTrips(w io.Writer, routeInfo, generator string, seed int64, keepAux bool) (int, error) {
	info, err := engine.ReadRouteInfo(routeInfo)
	if err != nil {
		return 0, err
	}
	trips := info.Trips
	if !keepAux {
		trips = lo.Reject(trips, func(t engine.TripRecord, _ int) bool {
			return demand.IsAuxiliary(t.VehicleID)
		})
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemPreference)
	defs := driver.FromTrips(trips, driver.NewPreferenceGenerator(generator), rng)
	if err := driver.WriteDefinitions(w, defs); err != nil {
		return 0, fmt.Errorf("writing drivers: %w", err)
	}
	return len(defs), nil
}

func init() {
	driversConvertCmd.Flags().StringVar(&convertRouteInfo, "routeinfo", "", "Trip record file (routeinfo_<k>.yaml)")
	driversConvertCmd.Flags().StringVar(&convertPreference, "preference", "uniform", "Preference generator (balanced, time-money, uniform, gaussian)")
	driversConvertCmd.Flags().Int64Var(&convertSeed, "seed", 42, "Seed for the preference generator")
	driversConvertCmd.Flags().StringVar(&convertOutput, "output", "", "Driver file to write; stdout when empty")
	driversConvertCmd.Flags().BoolVar(&convertKeepAux, "keep-aux", false, "Keep auxiliary vehicles as drivers")
	_ = driversConvertCmd.MarkFlagRequired("routeinfo")

	driversCmd.AddCommand(driversConvertCmd)
	rootCmd.AddCommand(driversCmd)
}
