// Package websocket provides the WebSocket transport for the room broker.
//
// The websocket package implements:
//   - Connection upgrade and per-connection read/write pumps
//   - Decoding of inbound event envelopes and dispatch to a Handler
//   - Fire-and-forget delivery of outbound events by connection ID
//   - Close notification so the coordinator can tear the player down
//   - Keep-alive pings and dead peer detection
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns the
// table of live connections. Registration, unregistration and outbound
// delivery are serialized through the hub's Run loop; each connection is
// served by a reader goroutine (which calls the Handler synchronously, so
// one connection's events are processed in order) and a writer goroutine.
//
// Message Protocol:
//
// Every frame is a JSON envelope in both directions:
//
//	{"event": "join-room", "data": {"roomId": "brave-calm-otter"}}
//	{"event": "join-room-ok", "data": {"playerNum": 2, "room": {...}}}
//
// data is omitted for events that carry no payload (hello, game-started,
// the -ko replies).
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	svc := service.NewSessionService(identities, rooms, hub)
//	hub.SetHandler(svc)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects and is assigned a connection ID
// 2. Connection registered with hub
// 3. Client sends events, receives replies and room broadcasts
// 4. Disconnection calls Handler.Forget, then unregisters the connection
//
// Slow consumers whose send buffer fills up are disconnected; the close
// then flows through the normal teardown path.
package websocket
