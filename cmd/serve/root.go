package serve

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	cmdUtil "github.com/freedm/ipcd/cmd/util"
	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/server"
	"github.com/freedm/ipcd/ipc/server/tcp"
	"github.com/freedm/ipcd/ipc/server/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "net/http/pprof"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the ipcd server",
		Long:    `Start the ipcd server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is IPCD_<flag> (e.g. IPCD_MAX_CONNECTIONS=100)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "/tmp/ipcd.sock", cmdUtil.WrapString("The address on which the server will listen: a socket path for unix, host:port for tcp"))

	key = "mode"
	ServeCmd.PersistentFlags().String(key, "text", cmdUtil.WrapString("Default framing mode for new connections (text, stream, persistent). A session may switch its own mode via the command sub-protocol"))

	key = "read-limit"
	ServeCmd.PersistentFlags().Uint64(key, 0, cmdUtil.WrapString("Maximum number of payload bytes accepted for one text mode message (0 = unlimited)"))

	key = "chunk-size"
	ServeCmd.PersistentFlags().Uint64(key, 0, cmdUtil.WrapString("Maximum number of bytes delivered per message in stream mode (0 = default of 64 KB)"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Maximum number of concurrently running sessions (0 = unbounded)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Per-operation I/O deadline in seconds (0 = none)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The kernel write buffer size per connection (in KB, 0 = OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The kernel read buffer size per connection (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for accepted connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for accepted connections (in seconds, only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time for accepted connections (in seconds, -1 = OS default, only for tcp)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional host:port for the Prometheus metrics and pprof HTTP endpoint (empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse the default framing mode
	mode, err := common.ParseConnectionMode(viper.GetString("mode"))
	if err != nil {
		return err
	}
	serveCmdConfig.DefaultMode = mode

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.WriteBufferSize = viper.GetInt("write-buffer") * 1024
	serveCmdConfig.Transport.ReadBufferSize = viper.GetInt("read-buffer") * 1024
	serveCmdConfig.Transport.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Transport.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.Transport.TCPLingerSec = viper.GetInt("tcp-linger")
	serveCmdConfig.ReadLimit = viper.GetUint64("read-limit")
	serveCmdConfig.ChunkSize = viper.GetUint64("chunk-size")
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the ipcd server
func run(_ *cobra.Command, _ []string) error {
	// Init loggers
	common.InitLoggers(*serveCmdConfig)

	// Parse the transport
	var srv server.IIPCServer
	switch viper.GetString("transport") {
	case "unix":
		srv = unix.NewUnixDefaultServer()
	case "tcp":
		srv = tcp.NewTCPDefaultServer()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	// Optionally expose Prometheus metrics and pprof
	if metricsEndpoint := viper.GetString("metrics-endpoint"); metricsEndpoint != "" {
		http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			metrics.WritePrometheus(w, true)
		})
		go func() {
			if err := http.ListenAndServe(metricsEndpoint, nil); err != nil {
				fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
			}
		}()
	}

	// Shut down cleanly on SIGINT/SIGTERM so the socket node is removed
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = srv.Close()
	}()

	fmt.Println(serveCmdConfig.String())

	if err := srv.Serve(*serveCmdConfig); err != nil && !errors.Is(err, common.ErrServerClosed) {
		return err
	}
	return nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ipcd")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
