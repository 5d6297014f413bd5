package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sdnctl",
		Short: "SDN bypass controller for the livestreaming P2P experiment",
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newVersionCommand())
	return root
}
