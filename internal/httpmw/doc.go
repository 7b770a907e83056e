// Package httpmw holds the HTTP middleware shared by the API and admin
// listeners: request IDs, request-scoped logging, access logs, panic
// recovery, body limits, and security headers.
package httpmw
