package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpengine/mpcore/internal/healthsvc"
	"github.com/mpengine/mpcore/internal/term"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC health/status service",
	Long: `serve starts a minimal gRPC server exposing the standard health-checking
protocol (grpc_health_v1) plus reflection, reporting NOT_SERVING until the listener is
up and SERVING thereafter, and flipping back to NOT_SERVING on graceful shutdown.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Start the health service on the default address
  ` + binName + ` serve

  # Listen on a specific address
  ` + binName + ` serve --addr :7070`

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":7070", "Address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	server := healthsvc.NewServer(serveAddr, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down health service...")
		server.Shutdown()
		// os.Exit bypasses main.go's post-Execute call entirely, so run the
		// termination-callback registry here on this exit path explicitly.
		term.Global().ExecuteAll(nil)
		os.Exit(0)
	}()

	log.Info("mpcore health service listening on %s", serveAddr)
	if err := server.Start(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
