// Package mcp provides a Model Context Protocol server for inspecting the room broker.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Read-only tools backed by the broker's REST API
//   - A protocol reference for agents writing game clients
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_rooms: Joinable rooms, or all rooms with include_all
//   - get_room: One room with owner, status and slots
//   - broker_stats: Identity, room and connection counts
//   - protocol_reference: WebSocket events and payloads
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: POST /mcp on the broker's own HTTP server
//
// The client never talks to the registries directly; every tool is a REST
// call, so the same binary can inspect a broker running elsewhere.
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
