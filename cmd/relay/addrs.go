package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/wsrelay/internal/server"
)

var addrsCmd = &cobra.Command{
	Use:   "addrs",
	Short: "List the ws:// URIs this host can be reached on",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		addrs, err := server.LocalIPv4Addrs()
		if err != nil {
			return err
		}
		for _, uri := range server.ConnectionURIs(addrs, port) {
			fmt.Fprintln(cmd.OutOrStdout(), uri)
		}
		return nil
	},
}
