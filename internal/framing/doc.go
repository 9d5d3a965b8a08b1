// Package framing turns a raw telemetry byte stream into records.
//
// A [Framer] owns a [Window] of immutable chunks in arrival order. Chunks are
// appended with Push; Next scans for the frame marker, reads the big-endian
// length field and hands each complete payload to a ports.RecordDecoder.
// Consumed chunks are dropped as soon as the read position moves past them.
//
// A Framer is not safe for concurrent use. Each stream owns its own.
package framing
