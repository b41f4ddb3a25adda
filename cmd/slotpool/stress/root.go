package stress

import (
	"github.com/openziti/slotpool/cmd/slotpool/slotpool"
	"github.com/spf13/cobra"
	"runtime"
)

func init() {
	stressCmd.PersistentFlags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	stressCmd.PersistentFlags().IntVarP(&iterations, "iterations", "i", 100000, "Iterations per worker")
	stressCmd.PersistentFlags().IntVarP(&hold, "hold", "o", 64, "Slots held by each worker before releasing")
	stressCmd.PersistentFlags().BoolVarP(&writeMetrics, "write", "m", false, "Write metrics instrument samples on completion")
	slotpool.RootCmd.AddCommand(stressCmd)
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Exercise a pool from concurrent workers and verify slot exclusivity",
}
var workers int
var iterations int
var hold int
var writeMetrics bool

func configPath() string {
	return slotpool.ConfigPath
}

func configDump() bool {
	return slotpool.ConfigDump
}
