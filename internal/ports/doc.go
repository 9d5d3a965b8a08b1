// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the ingestion and query core and the
// outside world. They define what the core needs from external systems
// without specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [ChunkSource]: Delivers raw byte chunks from one producer in arrival order
//   - [SourceAcceptor]: Produces a ChunkSource per producer (connection, subject)
//   - [RecordDecoder]: Turns one frame payload into a domain record
//   - [Store]: Holds records and answers paged queries
//   - [Dictionary]: Looks up channel and event definitions
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app, internal/query, internal/reconstruct)
// depends only on these interfaces. Infrastructure adapters
// (internal/adapters) implement them with sockets, NATS, CBOR, YAML files
// and an in-memory store.
package ports
