package msg

import (
	"bytes"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/freedm/ipcd/cmd/util"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for IPC servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfPayloadSizeKB = 1
	perfNumThreads    = 10
)

func init() {
	// add flags
	key := "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "payload-size"
	perfTestCmd.Flags().Int(key, 1, util.WrapString("How large the payload for the send test should be (in KB)"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfPayloadSizeKB = viper.GetInt("payload-size")
	perfNumThreads = viper.GetInt("threads")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for IPC servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Payload: %d KB\n", perfPayloadSizeKB)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	sendTimer := metrics.NewRegisteredTimer("send", registry)
	pingTimer := metrics.NewRegisteredTimer("ping", registry)

	payload := bytes.Repeat([]byte("x"), perfPayloadSizeKB*1024)

	sendResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				if _, err := ipcClient.Send(payload); err != nil {
					log.Printf("(send) - error sending payload: %v\n", err)
					continue
				}
				sendTimer.UpdateSince(start)
			}
		})
	})
	printResult("send", sendResult, sendTimer)

	pingResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				if _, err := ipcClient.Ping(); err != nil {
					log.Printf("(ping) - error pinging server: %v\n", err)
					continue
				}
				pingTimer.UpdateSince(start)
			}
		})
	})
	printResult("ping", pingResult, pingTimer)

	return nil
}

// printResult prints a benchmark result together with its latency percentiles
func printResult(name string, result testing.BenchmarkResult, timer metrics.Timer) {
	fmt.Printf("\n%s:\n", name)
	fmt.Printf("  %-12s: %d\n", "iterations", result.N)
	fmt.Printf("  %-12s: %s\n", "per op", time.Duration(result.NsPerOp()))
	fmt.Printf("  %-12s: %s\n", "mean", time.Duration(int64(timer.Mean())))
	fmt.Printf("  %-12s: %s\n", "p50", time.Duration(int64(timer.Percentile(0.5))))
	fmt.Printf("  %-12s: %s\n", "p95", time.Duration(int64(timer.Percentile(0.95))))
	fmt.Printf("  %-12s: %s\n", "p99", time.Duration(int64(timer.Percentile(0.99))))
}
