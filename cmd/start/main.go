package start

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/streamstore/streamstore/catalog"
	"github.com/streamstore/streamstore/executor"
	"github.com/streamstore/streamstore/frontend"
	"github.com/streamstore/streamstore/frontend/stream"
	"github.com/streamstore/streamstore/ledger"
	"github.com/streamstore/streamstore/metrics"
	"github.com/streamstore/streamstore/utils"
	"github.com/streamstore/streamstore/utils/log"
)

const (
	usage                 = "start"
	short                 = "Start a streamstore server"
	long                  = "This command starts a streamstore server"
	example               = "streamstore start --config <path>"
	defaultConfigFilePath = "./streamstore.yml"
	configDesc            = "set the path for the streamstore YAML configuration file"

	diskUsageMonitorInterval = 10 * time.Minute
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"boot", "up"},
		Example:    example,
		RunE:       executeStart,
	}
	// configFilePath set flag for a path to the config file.
	configFilePath string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	utils.InstanceConfig.StartTime = time.Now()
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", defaultConfigFilePath, configDesc)
}

// executeStart implements the start command.
func executeStart(cmd *cobra.Command, _ []string) error {
	// Attempt to read config file.
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file error: %w", err)
	}

	// Don't output command usage if args are correct
	cmd.SilenceUsage = true

	// Log config location.
	log.Info("using %v for configuration", configFilePath)

	// Attempt to set configuration.
	config, err := utils.ParseConfig(data)
	if err != nil {
		return fmt.Errorf("failed to parse configuration file error: %w", err)
	}
	utils.InstanceConfig = *config

	// Initialize streamstore services.
	// --------------------------------
	log.Info("initializing streamstore...")

	startTime := time.Now()

	catalogDir, err := catalog.NewDirectory(config.RootDirectory, ledger.Options{
		SegmentMaxEntries: config.SegmentMaxEntries,
		Compress:          !config.DisableCompression,
	})
	if err != nil {
		return fmt.Errorf("failed to open the topic catalog: %w", err)
	}

	exec := executor.NewExecutor()

	go metrics.StartDiskUsageMonitor(metrics.TotalDiskUsageBytes, config.RootDirectory, diskUsageMonitorInterval)

	startupTime := time.Since(startTime)
	metrics.StartupTime.Set(startupTime.Seconds())
	log.Info("startup time: %s", startupTime)

	// Set rpc handler.
	log.Info("launching rpc data server...")
	server, _ := frontend.NewServer(config.EnableAdd, catalogDir, exec)
	http.Handle("/rpc", server)

	// Set websocket handler.
	log.Info("initializing websocket...")
	stream.Initialize()
	http.HandleFunc("/ws", stream.Handler)

	// Set monitoring handler.
	log.Info("launching prometheus metrics server...")
	http.Handle("/metrics", promhttp.Handler())

	// Kick off scheduled compaction when configured.
	if config.CompactionInterval > 0 {
		log.Info("scheduling background compaction every %v", config.CompactionInterval)
		go runCompactionTicker(catalogDir, exec, config.CompactionInterval)
	}

	if config.Queryable {
		log.Info("enabling query access...")
		atomic.StoreUint32(&frontend.Queryable, 1)
	}

	// Spawn a goroutine and listen for a signal.
	const defaultSignalChanLen = 10
	signalChan := make(chan os.Signal, defaultSignalChanLen)
	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGUSR1:
				log.Info("dumping stack traces due to SIGUSR1 request")
				if err2 := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1); err2 != nil {
					log.Error("failed to write goroutine pprof: %v", err2)
					return
				}
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info("initiating graceful shutdown due to '%v' request", s)
				atomic.StoreUint32(&frontend.Queryable, 0)
				log.Info("waiting a grace period of %v to shutdown...", config.StopGracePeriod)
				time.Sleep(config.StopGracePeriod)
				exec.Shutdown()
				catalogDir.Close()
				shutdown()
			}
		}
	}()
	signal.Notify(signalChan, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)

	// Serve.
	log.Info("launching tcp listener for all services...")
	if err := http.ListenAndServe(config.ListenPort, nil); err != nil {
		return fmt.Errorf("failed to start server - error: %w", err)
	}

	return nil
}

// runCompactionTicker compacts every known topic on a fixed schedule.
// The executor serializes runs per topic, so a slow run simply delays
// that topic's next tick.
func runCompactionTicker(catalogDir *catalog.Directory, exec *executor.Executor, interval time.Duration) {
	t := time.NewTicker(interval)
	for range t.C {
		topics, err := catalogDir.ListTopics("")
		if err != nil {
			log.Error("compaction ticker: list topics: %v", err)
			continue
		}
		for _, name := range topics {
			topic, err := catalogDir.GetTopic(name)
			if err != nil {
				continue
			}
			exec.Compact(topic)
		}
	}
}

func shutdown() {
	log.Info("exiting...")
	os.Exit(0)
}
