package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "tunman",
	Short: "SSH tunnel supervision daemon",
	Long:  `tunman keeps a fleet of long-lived SSH port-forwarding tunnels alive: it spawns them, health-checks them and restarts them on failure`,
}
