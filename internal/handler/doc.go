// Package handler provides the HTTP surface of the Lootbound API.
//
// Each handler wraps one service and translates between JSON requests and
// service calls. RegisterRoutes mounts them on a net/http ServeMux using
// method-qualified patterns.
//
// # Response Format
//
//   - WriteData: single resource with optional links
//   - WriteCollection: list with optional pagination
//   - WriteError: RFC 9457 Problem Details
//
// Service errors pass through MapServiceError, which keeps internal error
// text out of responses.
//
// # Identity
//
// Player-acting routes read the caller from the X-Player-ID header via
// middleware.Identity and are wrapped with middleware.RequirePlayer.
package handler
