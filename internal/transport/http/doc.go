// Package http contains the HTTP transport layer. Handlers stay thin:
// they bind and validate requests, call the service or queue, and map
// domain errors onto structured API errors.
package http
