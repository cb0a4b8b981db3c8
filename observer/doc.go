// Package observer provides pipeline.Observer implementations for training
// runs.
//
//   - LogObserver: logs run and stage progress through log/slog.
//   - Metrics: records run counts and stage durations in a private Prometheus
//     registry and can write them to a Prometheus textfile.
//   - Ledger: persists each run and its stages to SQLite (training_run,
//     training_run_stage) so past runs can be listed and inspected.
//
// Combine them with pipeline.MultiObserver. Stage payloads implementing
// Summarizer are recorded by their one-line summary.
package observer
