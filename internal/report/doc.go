// Package report defines the delivery boundary for finished fault reports
// and the available destinations.
//
// The engine hands a Report to a single Sink and treats a delivery error as
// non-fatal: it is logged, never retried. Destinations:
//
//   - LogSink: plain-text log file (or stderr)
//   - SyslogSink: system log at error priority
//   - OTELSink: one span per report, exported over OTLP
//   - SQLiteSink: local problem store
//
// Multi fans out to several destinations; a failing one does not stop the
// others.
package report
