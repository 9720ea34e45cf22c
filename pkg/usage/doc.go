// Package usage meters authenticated requests.
//
// Middleware turns every authenticated request into an Event and hands it
// to a Recorder, which buffers events in a channel and writes them in
// batches from a single background goroutine. A full buffer delays the
// request by at most the configured write timeout, after which the event is
// dropped and counted.
//
// A Pruner deletes events past the retention period; Scheduler runs it on
// a cron expression (default "0 3 * * *", daily at 3 AM).
package usage
