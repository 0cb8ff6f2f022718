// Package export implements the export-request pipeline: translating an
// inbound request's convenience parameters (target, last, match[]) into a
// VictoriaMetrics /api/v1/export query, streaming the upstream response
// back to the caller without buffering it, and producing one Outcome per
// attempted export for instrumentation.
//
// # Pipeline
//
// An inbound request flows through four stages:
//
//  1. ResolveWindow turns last/start/end into an absolute range. Explicit
//     start+end win over last; last resolves against a single now captured
//     at request receipt; nothing given leaves the range unconstrained.
//  2. ParseRequest and Request.QueryURL validate the target and build the
//     immutable upstream URL, synthesizing the {__name__!=''} default
//     matcher when the request carries no match[] expressions.
//  3. Client.Fetch opens a streaming GET. Transport failures and non-2xx
//     statuses come back as *UpstreamError; there is no retry.
//  4. Relay forwards the body chunk by chunk while counting exposition
//     records in the same pass.
//
// # Error taxonomy
//
//   - ErrInvalidTarget, ErrInvalidParameter: detected before any upstream
//     call; these are not export attempts and are never recorded.
//   - *UpstreamError: the single attempt failed before any byte was
//     forwarded; mapped to 502 and recorded as a failed outcome.
//   - ErrStreamInterrupted: the body was cut mid-transfer after forwarding
//     began. The truncated response stands; the outcome is recorded as
//     failed with the records delivered before the cut, so the exported
//     metric counter reflects bytes the caller actually received.
//
// # Usage
//
//	client := export.NewClient(5 * time.Minute)
//	handler := export.NewHandler(client, registry, logger)
//	router.HandleFunc("/export", handler.HandleExport).Methods("GET")
package export
