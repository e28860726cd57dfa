/*
Package httpserver implements the relay's webhook ingestion surface.

It accepts hardware and system alerts over HTTP, resolves the submitted
identity through the subscription registry and dispatches the notification
synchronously, so the caller's response reflects the real delivery outcome.

API Endpoints:

  - POST /notify - Submit an alert for a subscribed identity
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

Every other path and method answers 200 OK with a plain-text liveness body,
so naive monitors hitting the root keep working.

The server runs an optional second listener serving Prometheus metrics, kept
off the API address so scraping never competes with webhook traffic.
*/
package httpserver
