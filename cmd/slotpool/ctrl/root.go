package ctrl

import (
	"github.com/openziti/slotpool/cmd/slotpool/slotpool"
	"github.com/spf13/cobra"
)

func init() {
	slotpool.RootCmd.AddCommand(ctrlCmd)
}

var ctrlCmd = &cobra.Command{
	Use:   "ctrl",
	Short: "Control running pool instruments",
}
