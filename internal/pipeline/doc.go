// Package pipeline runs probe steps in sequence and probe batches in parallel.
//
// A Pipeline executes the steps of a single probe in order. Each Step fills
// in part of the ProbeResult under construction. A step that returns an
// error aborts the probe; optional steps record their failures as warnings
// on the result and return nil instead.
//
// A batch run fans one goroutine out per target. Admission is gated by a
// WorkerPool of fixed width that is created for the run and passed in, so
// independent runs never share a gate. Slots are released on success,
// failure and timeout alike. A failed probe never cancels its siblings.
//
// Aggregate is the join barrier of a batch: it waits for every probe,
// drops the failed ones and fails with ErrAllTargetsUnreachable when nothing
// succeeded.
package pipeline
