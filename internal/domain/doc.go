// Package domain contains the core entities and value objects for ladcache.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (sockets, NATS, files, logging) and holds only the
// telemetry data model and the rules that constrain it.
//
// # Entities
//
//   - [Record]: a decoded telemetry record, either a [ChannelSample] (EHA)
//     or an [EventRecord] (EVR)
//   - [RecordHeader]: the identifying and timestamp fields both variants carry
//   - [QueryParams]: an immutable query built by [QueryBuilder]
//   - [ResultPage]: one page of raw records returned by a store
//   - [ChannelValue], [EventValue]: fully reconstructed domain objects with
//     their dictionary definitions restored
//
// # Wire constants
//
// The frame marker, length field size and default record size ceiling shared
// by producers and the framer live in frame.go.
package domain
