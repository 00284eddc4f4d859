package msg

import (
	"fmt"

	"github.com/freedm/ipcd/cmd/util"
	"github.com/freedm/ipcd/ipc/client"
	"github.com/spf13/cobra"
)

var (
	ipcClient client.IIPCClient

	// MsgCommands represents the msg command group
	MsgCommands = &cobra.Command{
		Use:               "msg",
		Short:             "Exchange messages with an IPC server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common IPC flags to the msg command
	util.SetupIPCClientFlags(MsgCommands)

	// Add subcommands
	MsgCommands.AddCommand(sendCmd)
	MsgCommands.AddCommand(streamCmd)
	MsgCommands.AddCommand(pingCmd)
	MsgCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the IPC client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	ipcClient, err = util.GetClient()
	return err
}

var (
	sendCmd = &cobra.Command{
		Use:   "send [message]",
		Short: "Sends one discrete message and prints the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ipcClient.Send([]byte(args[0]))
			if err != nil {
				return err
			}
			if len(resp) > 0 {
				fmt.Println(string(resp))
			} else {
				fmt.Println("sent successfully")
			}
			return nil
		},
	}
	streamCmd = &cobra.Command{
		Use:   "stream [chunk]...",
		Short: "Sends the arguments as individual stream chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks := make([][]byte, len(args))
			for i, arg := range args {
				chunks[i] = []byte(arg)
			}
			if err := ipcClient.SendStream(chunks); err != nil {
				return err
			}
			fmt.Printf("streamed %d chunks successfully\n", len(chunks))
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Measures the round trip time of a PING/PONG exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rtt, err := ipcClient.Ping()
			if err != nil {
				return err
			}
			fmt.Printf("pong in %s\n", rtt)
			return nil
		},
	}
)
