package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kanalyze-tools/kanalyze/internal/netserver"
)

var clientConnect string

var clientCmd = &cobra.Command{
	Use:   "client <payload>",
	Short: "Send a single framed message to a running server and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE:  runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientConnect, "connect", netserver.DefaultAddress, "server address (host::port)")
}

func runClient(cmd *cobra.Command, args []string) error {
	c, err := netserver.Dial(clientConnect)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	defer c.Close()

	reply, err := c.Send(args[0])
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}

	fmt.Println(reply)
	return nil
}
