package tunnel

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"tunman/internal/models"
	"tunman/internal/rpc"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supervised tunnels",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listTunnels(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * List tunnel status from the running daemon
 * @returns {error} Returns error if the daemon is unreachable
 * @description
 * - Fetches the stats snapshot over the daemon's HTTP API
 * - Prints one row per forwarding signature plus the global counters
 */
func listTunnels() error {
	client := rpc.NewHTTPClient(nil)
	resp, err := client.Get("/tunman/api/v1/stats", nil)
	if err != nil {
		return fmt.Errorf("cannot reach tunman daemon: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var stats models.TunnelStats
	if err := json.Unmarshal(resp.Raw, &stats); err != nil {
		return fmt.Errorf("failed to parse stats response: %w", err)
	}

	signatures := make([]string, 0, len(stats.Status))
	for signature := range stats.Status {
		signatures = append(signatures, signature)
	}
	sort.Strings(signatures)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNATURE\tPID\tALIVE\tRESTARTS\tLAST START")
	for _, signature := range signatures {
		entry := stats.Status[signature]
		lastStart := ""
		if n := len(entry.StartsHistory); n > 0 {
			lastStart = entry.StartsHistory[n-1].Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%d\t%s\n",
			signature, entry.Pid, entry.IsAlive, entry.RestartsCount, lastStart)
	}
	w.Flush()

	fmt.Printf("\nprocs: %d, terminating: %v\n", stats.ProcsCount, stats.IsTerminating)
	return nil
}

func init() {
	tunnelCmd.AddCommand(listCmd)
}
