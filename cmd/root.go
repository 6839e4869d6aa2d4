package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grid-sim/grid-sim/sim/workload"
)

var (
	scenarioPath string // Path to the YAML scenario file
	logLevel     string // Log verbosity level
	horizon      int64  // Overrides the scenario horizon when > 0
	seed         int64  // Overrides the scenario seed when >= 0
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "grid-sim",
	Short: "Discrete-event simulator for grid resource reservation and scheduling",
}

// runCmd executes a scenario file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a reservation scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("No scenario file provided. Exiting simulation.")
		}
		scn, err := workload.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario: %v", err)
		}
		if horizon > 0 {
			scn.Horizon = horizon
		}
		if seed >= 0 {
			scn.Seed = seed
		}

		logrus.Infof("Starting simulation: %d resources, %d users, horizon=%d ticks",
			len(scn.Resources), len(scn.Users), scn.Horizon)

		runner, err := workload.Build(scn)
		if err != nil {
			logrus.Fatalf("unable to build scenario: %v", err)
		}
		summary := runner.Run()
		fmt.Println(summary)

		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands.
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario file")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&horizon, "horizon", 0, "Override the scenario horizon (in ticks)")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "Override the scenario seed")

	rootCmd.AddCommand(runCmd)
}
