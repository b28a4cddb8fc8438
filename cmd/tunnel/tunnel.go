package tunnel

import (
	"tunman/cmd/root"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel operations against a running daemon (list, stop)",
	Long:  `Tunnel operations against a running daemon (list, stop)`,
}

const tunnelExample = `  # list supervised tunnels
  tunman tunnel list`

func init() {
	root.RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Example = tunnelExample
}
