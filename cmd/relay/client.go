package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/wsrelay/internal/client"
)

var clientCmd = &cobra.Command{
	Use:   "client <url>",
	Short: "Connect to a relay and chat from the terminal",
	Long: `Connects to a relay (for example ws://localhost:8080/) and prints
every message it sends. Each line typed is sent as a text message.

  /file <path> [url]   send a file (JSON metadata frame, then the content)
  file:<path>:<url>    the same, in the colon form
  /quit                disconnect`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		origin, _ := cmd.Flags().GetString("origin")

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		var opts []client.Option
		if origin != "" {
			opts = append(opts, client.WithHeader(http.Header{"Origin": []string{origin}}))
		}

		fmt.Printf("Connecting to %s...\n", args[0])
		c, err := client.Dial(ctx, args[0], opts...)
		if err != nil {
			return err
		}

		err = c.Run(ctx, os.Stdin, os.Stdout)
		fmt.Println("Disconnected")
		return err
	},
}
