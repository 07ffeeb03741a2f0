// Package http provides HTTP handlers and middleware for the time tracking API.
//
// Every endpoint is scoped to the user identified by the `X-User-ID` header.
// The router exposes:
//   - GET /recurring-entries, POST /recurring-entries: list and create
//     recurring entry definitions exchanging the `recurringEntryDTO` payload
//     defined in recurring_handler.go. Listing accepts `?include_inactive=true`.
//   - GET /recurring-entries/{id}, PUT /recurring-entries/{id},
//     DELETE /recurring-entries/{id}: single entry management. Deleting an
//     entry also removes its generated time entries.
//   - POST /recurring-entries/{id}/activate, POST /recurring-entries/{id}/deactivate:
//     toggle generation for an entry. Repeating the current state yields 409.
//   - GET /recurring-entries/{id}/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD:
//     previews the dates the entry would generate, without writing anything.
//   - GET /time-entries?from=YYYY-MM-DD&to=YYYY-MM-DD: lists the generated
//     time entries for the requesting user.
//   - POST /generation/runs?date=YYYY-MM-DD: triggers a generation run for
//     one date (defaults to today) and reports the run counters.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
