package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bft-labs/ladcache/internal/adapters/fs"
	"github.com/bft-labs/ladcache/internal/cliconfig"
	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/query"
	"github.com/bft-labs/ladcache/pkg/ladcache"
	ladlog "github.com/bft-labs/ladcache/pkg/log"
)

type inspectOptions struct {
	chunkSize int
	kind      string
	entity    string
	strategy  string
	max       int
}

func inspectCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var o inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect <capture-file>",
		Short: "Replay a capture file and print latest values, or one entity's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadConfig(cmd, cfg, *cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return inspect(ctx, *cfg, log, args[0], o)
		},
	}

	cmd.Flags().IntVar(&o.chunkSize, "chunk-size", fs.DefaultChunkSize, "bytes read from the file at a time")
	cmd.Flags().StringVar(&o.kind, "kind", "all", "record kind to print: eha, evr or all")
	cmd.Flags().StringVar(&o.entity, "entity", "", "print the history of this channel id or event name instead of latest values")
	cmd.Flags().StringVar(&o.strategy, "strategy", query.LastReceived.String(), "history ordering: last_received, ert, scet or sclk")
	cmd.Flags().IntVar(&o.max, "max", 10, "history entries to print")
	return cmd
}

func parseKind(s string) (domain.QueryType, error) {
	switch s {
	case "all", "":
		return domain.QueryAll, nil
	case "eha", "channel":
		return domain.QueryChannel, nil
	case "evr", "event":
		return domain.QueryEvent, nil
	}
	return domain.QueryAll, fmt.Errorf("unknown record kind %q", s)
}

// buildQuery turns the inspect flags into query parameters. history
// reports whether they select one entity's history.
func buildQuery(o inspectOptions) (params domain.QueryParams, history bool, err error) {
	kind, err := parseKind(o.kind)
	if err != nil {
		return domain.QueryParams{}, false, err
	}
	b := ladcache.NewQuery().QueryType(kind)
	if o.entity == "" {
		params, err = b.Build()
		return params, false, err
	}

	strategy, err := query.ParseComparisonStrategy(o.strategy)
	if err != nil {
		return domain.QueryParams{}, false, err
	}
	params, err = b.EntityID(o.entity).
		TimeType(query.TimeTypeFor(strategy)).
		MaxResults(o.max).
		Build()
	return params, true, err
}

func inspect(ctx context.Context, cfg cliconfig.Config, log zerolog.Logger, path string, o inspectOptions) error {
	params, history, err := buildQuery(o)
	if err != nil {
		return err
	}

	opts := append([]ladcache.Option{ladcache.WithLogger(ladlog.NewZerologLogger(log))},
		dictionaryOption(cfg, false)...)
	svc, err := ladcache.New(serviceConfig(cfg), opts...)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop() }()

	src, err := fs.Open(path, o.chunkSize)
	if err != nil {
		return err
	}
	st, err := svc.Ingest(ctx, src)
	if err != nil {
		_ = src.Close()
		return err
	}
	select {
	case <-st.Done():
	case <-ctx.Done():
		st.Stop(false)
		return ctx.Err()
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}

	stats := st.Stats()
	log.Info().
		Str("file", path).
		Uint64("bytes", stats.BytesRead).
		Uint64("frames", stats.Frames).
		Uint64("stored", stats.Stored).
		Uint64("framing_errors", stats.FramingErrors).
		Uint64("decode_errors", stats.DecodeErrors).
		Uint64("skipped_bytes", stats.SkippedBytes).
		Msg("replayed")

	var values []domain.Value
	if history {
		values, err = svc.HistoryValues(ctx, params)
	} else {
		values, err = svc.LatestValues(ctx, params)
	}
	if err != nil {
		return err
	}
	for _, v := range values {
		printValue(log, v)
	}
	return nil
}

func printValue(log zerolog.Logger, v domain.Value) {
	switch v := v.(type) {
	case *domain.ChannelValue:
		ev := log.Info().
			Str("channel", v.Definition.ID).
			Str("name", v.Definition.Name).
			Str("type", v.Definition.Type.String()).
			Interface("dn", v.DN)
		if v.HasEU {
			ev = ev.Float64("eu", v.EU).Str("eu_units", v.Definition.EUUnits)
		}
		if v.Status != "" {
			ev = ev.Str("status", v.Status)
		}
		withTimes(ev, v.Times).Bool("realtime", v.Realtime).Msg("channel")
	case *domain.EventValue:
		ev := log.Info().
			Int64("event_id", v.Definition.ID).
			Str("name", v.Definition.Name).
			Str("level", v.Definition.Level).
			Str("message", v.Message)
		withTimes(ev, v.Times).Bool("realtime", v.Realtime).Msg("event")
	}
}

func withTimes(ev *zerolog.Event, t domain.Times) *zerolog.Event {
	if !t.ERT.IsZero() {
		ev = ev.Time("ert", t.ERT)
	}
	if !t.SCET.IsZero() {
		ev = ev.Time("scet", t.SCET)
	}
	if t.HasSCLK {
		ev = ev.Str("sclk", t.SCLK.String())
	}
	if t.HasLST {
		ev = ev.Str("lst", t.LST.String())
	}
	return ev
}
