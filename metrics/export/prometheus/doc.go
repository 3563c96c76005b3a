// Package prometheus exposes agencyAuth engine metrics through
// client_golang.
//
// [NewCollector] returns a prometheus.Collector that reads the engine
// snapshot on every scrape. Counter names are agencyauth_*_total; the single
// histogram is agencyauth_guard_latency_seconds.
//
// The package never touches the global default registry. Use [Handler] for a
// standalone endpoint or [Register] with your own registry.
package prometheus
