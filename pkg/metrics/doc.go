// Package metrics provides the process-wide, target-labeled export
// instrumentation backed by the Prometheus client library.
//
// Four series are kept per target:
//
//   - vmexporter_export_duration{target}: last export duration gauge
//   - vmexporter_export_count{target}: exports attempted
//   - vmexporter_export_failures{target}: exports failed
//   - vmexporter_export_metrics{target}: records delivered to callers
//
// plus a fixed vmexporter_info{version,...} record and the standard Go
// runtime and process collectors.
//
// Record serializes updates per target so the four series always reflect
// a consistent snapshot of one outcome; Handler exposes the registry in
// exposition text format.
package metrics
