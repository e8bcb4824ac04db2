// Package backend is the REST client for the agent backend.
//
// The console talks to three endpoints:
//
//	POST {base}/chat                 send a message, returns the full response
//	GET  {base}/health               health payload (displayed verbatim)
//	GET  {base}/performance/metrics  metrics payload (displayed verbatim)
//
// Non-2xx responses become *APIError. Transport failures and timeouts are
// returned wrapped, so callers can tell them apart with errors.As and
// errors.Is(err, context.DeadlineExceeded).
package backend
