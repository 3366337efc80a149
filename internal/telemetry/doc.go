// Package telemetry collects a point-in-time health snapshot from a device
// over SSH, without any agent installed on it.
//
// # Pipeline
//
// CollectMetrics dials the device once and runs everything on that one
// connection, one command at a time:
//
//  1. A liveness probe ("echo ping"). Failure ends the pipeline with an
//     offline snapshot carrying only status and timestamp.
//  2. OS classification (Detect), which selects a command set.
//  3. The memory, CPU, load, process, disk and network commands for that
//     OS, each parsed by a dedicated parser.
//
// # Degradation
//
// Parsers never fail. A field whose source text is missing or unreadable
// is reported as "N/A", which is distinct from zero. An SSH-level failure
// partway through is different: the partial readings are discarded and the
// snapshot reports the device offline with the error.
//
// # Formats
//
// Values are preformatted strings ready for display: memory in GB with two
// decimals ("1.95 GB"), CPU percentages with one decimal ("12.5%"), memory
// and disk usage as whole percentages ("40%"), and network counters in MB.
package telemetry
