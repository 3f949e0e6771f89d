// Package api provides the HTTP front of the room broker.
//
// The api package implements:
//   - Read-only REST introspection of rooms and occupancy
//   - The WebSocket endpoint players connect to
//   - The Prometheus scrape endpoint
//   - Static file serving for the browser client
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List joinable rooms (?all=true includes started and full rooms)
//   - GET /api/rooms/{id} - Get one room, case-insensitive ID
//
// Broker:
//   - GET /api/stats - Identity, room and connection counts
//   - GET /api/health - Liveness probe
//   - GET /metrics - Prometheus metrics, when a handler is configured
//
// Realtime:
//   - GET /ws - WebSocket upgrade; see package websocket for the envelope
//
// Rooms are rendered the same way they travel over the WebSocket:
//
//	{
//	  "roomId": "brave-calm-otter",
//	  "ownerId": "6f1c...",
//	  "started": false,
//	  "playerIds": ["6f1c...", null, null, null]
//	}
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "room not found"
//	}
//
// Room state can only be changed over the WebSocket; the REST surface never
// mutates the broker.
package api
