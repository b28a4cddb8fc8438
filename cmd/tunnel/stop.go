package tunnel

import (
	"fmt"
	"log"

	"tunman/internal/rpc"

	"github.com/spf13/cobra"
)

var (
	stopSignature string
	stopAll       bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Kill tunnel processes by signature, or shut the whole fleet down",
	Run: func(cmd *cobra.Command, args []string) {
		if !stopAll && stopSignature == "" {
			log.Fatal("Must specify a signature (--signature) or --all")
		}

		client := rpc.NewHTTPClient(nil)
		if stopAll {
			stopAllTunnels(client)
			return
		}
		stopOneTunnel(client, stopSignature)
	},
}

func stopAllTunnels(client rpc.HTTPClient) {
	resp, err := client.Post("/tunman/api/v1/shutdown", nil)
	if err != nil {
		log.Fatalf("Cannot reach tunman daemon: %v", err)
	}
	if resp.StatusCode != 200 {
		log.Fatalf("Daemon returned status %d: %s", resp.StatusCode, string(resp.Raw))
	}
	fmt.Println("Shutdown initiated, all tunnels are being closed")
}

func stopOneTunnel(client rpc.HTTPClient, signature string) {
	resp, err := client.Delete("/tunman/api/v1/tunnels", map[string]string{"signature": signature})
	if err != nil {
		log.Fatalf("Cannot reach tunman daemon: %v", err)
	}
	if resp.StatusCode != 200 {
		log.Fatalf("Daemon returned status %d: %s", resp.StatusCode, string(resp.Raw))
	}
	if resp.Body != nil {
		if message, ok := resp.Body["message"].(string); ok {
			fmt.Println(message)
			return
		}
	}
	fmt.Printf("Killed processes for signature %s\n", signature)
}

func init() {
	stopCmd.Flags().SortFlags = false
	stopCmd.Flags().StringVarP(&stopSignature, "signature", "s", "", "Forwarding signature")
	stopCmd.Flags().BoolVar(&stopAll, "all", false, "Shut down the whole fleet")
	tunnelCmd.AddCommand(stopCmd)
}
