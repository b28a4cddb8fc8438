package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tunman/cmd/root"
	"tunman/controllers"
	"tunman/internal/config"
	"tunman/internal/logger"
	"tunman/internal/middleware"
	"tunman/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the tunnel supervision daemon",
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Start the supervision daemon
 * @returns {error} Returns error on invalid config or failed spawn registration
 * @description
 * - Builds the supervision stack: process registry, health checker, shell
 *   spawner and the supervisor registry
 * - Spawns one supervisor goroutine per configured forwarding
 * - Serves the HTTP API on the configured address
 * - Blocks until SIGINT/SIGTERM, then runs the global shutdown sequence and
 *   waits for every supervisor to observe it
 */
func startServer() error {
	cfg := &config.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	router.Use(middleware.MetricsMiddleware())

	log := logger.Default()
	procRegistry := services.NewProcessRegistry(cfg.Tunnel.Binary, log)
	checker := services.NewHealthChecker(procRegistry)
	registry := services.NewSupervisorRegistry(procRegistry, checker, services.NewShellSpawner(), log)

	definitions := cfg.AllDefinitions()
	services.SetSupervisedTunnels(len(definitions))

	controllers.NewAPIController(registry, definitions).RegisterRoutes(router)
	controllers.NewTunnelController(registry, procRegistry, definitions).RegisterRoutes(router)

	for i := range cfg.Hosts {
		host := &cfg.Hosts[i]
		conn := host.ConnectionConfig()
		for _, def := range host.Definitions() {
			if err := registry.Spawn(def, conn); err != nil {
				return fmt.Errorf("failed to register tunnel %s: %w", def.Signature(), err)
			}
		}
	}

	go func() {
		if err := router.Run(cfg.Server.Address); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received termination signal, closing all tunnels")
	if err := registry.Shutdown(); err != nil {
		return err
	}
	registry.Wait()
	return nil
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
