package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "WebSocket echo and broadcast relay",
	Long: `relay accepts WebSocket connections and relays every message:
the sender gets it back prefixed with "Echo: ", everyone else gets it
prefixed with "Message from <address:port>: ".`,
	SilenceUsage: true,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file, watched for changes")
	serveCmd.Flags().String("host", "", "Listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")
	serveCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error (overrides config)")
	serveCmd.Flags().String("log-format", "", "Log format: json|text (overrides config)")

	clientCmd.Flags().String("origin", "", "Origin header to send with the handshake")

	addrsCmd.Flags().Int("port", 8080, "Port to format the connection URIs with")

	rootCmd.AddCommand(serveCmd, clientCmd, addrsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
