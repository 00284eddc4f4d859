package cmd

import (
	"fmt"
	"os"

	"github.com/freedm/ipcd/cmd/msg"
	"github.com/freedm/ipcd/cmd/serve"
	"github.com/freedm/ipcd/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ipcd",
		Short: "session-oriented IPC server",
		Long: fmt.Sprintf(`ipcd (v%s)

A session-oriented IPC server for processes on the same host or a trusted
network, communicating over Unix domain or TCP sockets with pluggable
message framing.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ipcd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ipcd v%s\n", Version)
		},
	}
)

func init() {
	// Add subcommands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(msg.MsgCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, tcp)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
