// Package server exposes the label reader over HTTP.
//
// The server is a fiber application. All label routes live under /api/v1 and
// take a multipart upload in the "file" field:
//
//   - POST /api/v1/labels/analyze: detect, read and explain a label
//   - POST /api/v1/labels/extract: detect and read, without the explanation
//   - POST /api/v1/labels/annotate: the upload with detection boxes drawn, as PNG
//   - GET  /api/v1/ocr: recognition engine and profile information
//   - GET  /: health check
//
// # Middleware
//
// Every request gets an X-Request-ID (a ULID unless the client sent one),
// is logged with its status and latency, and label routes are rate limited
// per client IP.
//
// # Error Handling
//
// Handlers return errors and a single error handler turns them into JSON
// bodies of the form {"error": "...", "code": "..."}:
//
//   - 400: missing or empty upload, non-image content type, undecodable image
//   - 422: nothing detected, or no field could be read
//   - 429: rate limit exceeded
//   - 502: detection service or language model failed
//   - 503: no language model configured
//   - 504: request deadline exceeded
//   - 500: anything else, with a trace_id that matches the server log
package server
