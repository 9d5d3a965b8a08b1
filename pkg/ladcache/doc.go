// Package ladcache provides an embeddable latest-value and history cache
// for spacecraft telemetry.
//
// Producers push framed channel samples (EHA) and events (EVR) as a byte
// stream. The service frames and decodes each stream, keeps a bounded
// history per channel or event, and answers "latest value" and "history"
// queries against it.
//
// # Basic Usage
//
//	acc, err := tcp.Listen(":7730", 0)
//	...
//	svc, err := ladcache.New(ladcache.Config{},
//	    ladcache.WithAcceptor(acc),
//	    ladcache.WithDictionaryFile("/etc/ladcache/dictionary.yaml", true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Stop()
//
//	params, _ := ladcache.NewQuery().QueryType(domain.QueryChannel).Build()
//	values, err := svc.LatestValues(ctx, params)
//
// # Ingestion
//
// Every [ports.SourceAcceptor] passed with [WithAcceptor] is served while
// the service runs; each accepted source becomes one [Stream]. A single
// source can also be ingested directly with [Service.Ingest], which is how
// capture files are replayed.
//
// # Lifecycle States
//
// A Service is in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping] or [StateCrashed]. Stop drains every
// live stream, waiting at most 30 seconds.
package ladcache
