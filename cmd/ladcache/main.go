package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/ladcache/internal/adapters/natsq"
	"github.com/bft-labs/ladcache/internal/adapters/tcp"
	"github.com/bft-labs/ladcache/internal/cliconfig"
	"github.com/bft-labs/ladcache/pkg/ladcache"
	ladlog "github.com/bft-labs/ladcache/pkg/log"
)

const longHelp = `ladcache keeps the latest value and a bounded history of every telemetry
channel and event it receives.

Producers connect over TCP (one stream per connection) or publish to NATS
subjects (one stream per subject). Each stream carries framed channel
samples and events; chunk boundaries carry no meaning.

Configuration is read from $HOME/.ladcache/config.toml, then LADCACHE_*
environment variables, then flags, each overriding the previous.`

var exampleUsage = strings.TrimSpace(`
  ladcache serve --listen :7730 --dictionary /etc/ladcache/dictionary.yaml
  ladcache serve --listen "" --nats-url nats://bus:4222 --nats-subject telemetry.eha --nats-subject telemetry.evr
  ladcache inspect pass-0412.bin --strategy scet --entity A-1234 --max 20
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "ladcache",
		Short:         "Latest-value and history cache for spacecraft telemetry",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.ladcache/config.toml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.Dictionary, "dictionary", cfg.Dictionary, "dictionary YAML file")
	root.PersistentFlags().IntSliceVar(&cfg.LSTSpacecraft, "lst-scid", cfg.LSTSpacecraft, "spacecraft ids that report local solar time (default: all)")
	root.PersistentFlags().IntVar(&cfg.HistoryDepth, "history-depth", cfg.HistoryDepth, "records kept per channel or event")
	root.PersistentFlags().IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "records per store page")
	root.PersistentFlags().IntVar(&cfg.MaxRecordSize, "max-record-size", cfg.MaxRecordSize, "largest accepted frame length field")
	root.PersistentFlags().DurationVar(&cfg.QueryTimeout, "query-timeout", cfg.QueryTimeout, "deadline for each query")
	root.PersistentFlags().DurationVar(&cfg.MaxAge, "max-age", cfg.MaxAge, "drop channels and events idle this long (0 keeps them)")
	root.PersistentFlags().IntVar(&cfg.ChunkQueue, "chunk-queue", cfg.ChunkQueue, "chunks buffered between reader and framer")
	root.PersistentFlags().IntVar(&cfg.RecordQueue, "record-queue", cfg.RecordQueue, "records buffered between framer and store")

	root.AddCommand(serveCommand(&cfg, &cfgPath), inspectCommand(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		log, _ := cliconfig.Logger(os.Stderr, cliconfig.DefaultLogLevel)
		log.Error().Err(err).Msg("ladcache")
		os.Exit(1)
	}
}

// loadConfig applies the config file and environment under the flags the
// user set, validates the result and returns the logger it configures.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (zerolog.Logger, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return zerolog.Logger{}, err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return zerolog.Logger{}, err
	}
	if err := cfg.Validate(); err != nil {
		return zerolog.Logger{}, err
	}
	return cliconfig.Logger(os.Stderr, cfg.LogLevel)
}

func serviceConfig(cfg cliconfig.Config) ladcache.Config {
	return ladcache.Config{
		HistoryDepth:  cfg.HistoryDepth,
		PageSize:      cfg.PageSize,
		MaxRecordSize: uint32(cfg.MaxRecordSize),
		QueryTimeout:  cfg.QueryTimeout,
		MaxAge:        cfg.MaxAge,
		ChunkQueue:    cfg.ChunkQueue,
		RecordQueue:   cfg.RecordQueue,
		LSTSpacecraft: cfg.LSTSpacecraft,
	}
}

// dictionaryOption loads cfg.Dictionary when one is configured.
func dictionaryOption(cfg cliconfig.Config, watch bool) []ladcache.Option {
	if cfg.Dictionary == "" {
		return nil
	}
	return []ladcache.Option{ladcache.WithDictionaryFile(cfg.Dictionary, watch)}
}

func serveCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept telemetry streams and keep them queryable until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadConfig(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			if cfg.Listen == "" && cfg.NATSURL == "" {
				return errors.New("no source configured: set --listen or --nats-url")
			}
			log.Info().Interface("config", cfg).Msg("configuration")
			return serve(*cfg, log)
		},
	}

	cmd.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "TCP address producers connect to (empty disables TCP)")
	cmd.Flags().IntVar(&cfg.ReadSize, "read-size", cfg.ReadSize, "bytes read from a connection at a time")
	cmd.Flags().StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL (empty disables NATS)")
	cmd.Flags().StringSliceVar(&cfg.NATSSubjects, "nats-subject", cfg.NATSSubjects, "NATS subject to ingest, one stream each (repeatable)")
	cmd.Flags().IntVar(&cfg.NATSPending, "nats-pending", cfg.NATSPending, "messages buffered per NATS subject")
	cmd.Flags().BoolVar(&cfg.WatchDictionary, "watch-dictionary", cfg.WatchDictionary, "reload the dictionary when its file changes")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address serving Prometheus /metrics (empty disables)")
	return cmd
}

func serve(cfg cliconfig.Config, log zerolog.Logger) error {
	logger := ladlog.NewZerologLogger(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []ladcache.Option{
		ladcache.WithLogger(logger),
		ladcache.WithRegisterer(reg),
		ladcache.WithEventHandler(&logEvents{log: log}),
	}
	opts = append(opts, dictionaryOption(cfg, cfg.WatchDictionary)...)

	if cfg.Listen != "" {
		acc, err := tcp.Listen(cfg.Listen, cfg.ReadSize)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		log.Info().Str("addr", acc.Addr().String()).Msg("accepting producers")
		opts = append(opts, ladcache.WithAcceptor(acc))
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = natsq.Connect(cfg.NATSURL, "ladcache", logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
		opts = append(opts, ladcache.WithAcceptor(natsq.NewAcceptor(nc, cfg.NATSSubjects, cfg.NATSPending)))
	}

	svc, err := ladcache.New(serviceConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	<-ctx.Done()
	log.Info().Msg("received signal, stopping...")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// logEvents logs service events.
type logEvents struct {
	ladcache.BaseEventHandler
	log zerolog.Logger
}

func (e *logEvents) OnDictionaryReload(ev ladcache.DictionaryReloadEvent) {
	if ev.Err != nil {
		e.log.Warn().Err(ev.Err).Str("path", ev.Path).Msg("dictionary reload failed, keeping previous content")
		return
	}
	e.log.Info().Str("path", ev.Path).Msg("dictionary reloaded")
}
