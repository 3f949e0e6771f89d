package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/roombroker/game/room"
	"github.com/wricardo/mcp-training/roombroker/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Room Broker",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Room Broker - MCP Interface

This is a read-only window onto a running multiplayer room broker. Players
connect over WebSocket; these tools let you inspect what they are doing.

AVAILABLE TOOLS:
- list_rooms: Rooms that can currently be joined (or every room with include_all)
- get_room: One room with its owner and four player slots
- broker_stats: Connected identities, rooms and seated players
- protocol_reference: The WebSocket events a game client sends and receives

NOTE: Room IDs look like "brave-calm-otter" and are case-insensitive.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List rooms that are open for joining",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_all": map[string]interface{}{
					"type":        "boolean",
					"description": "Include started and full rooms",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the owner, state and player slots of one room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "broker_stats",
		Description: "Summarize identities, rooms and connections",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleBrokerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_reference",
		Description: "Describe the WebSocket events understood by the broker",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolReference)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeAll, _ := arguments(request)["include_all"].(bool)

	path := "/api/rooms"
	if includeAll {
		path += "?all=true"
	}

	var resp struct {
		Count int         `json:"count"`
		Rooms []room.Room `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomList(resp.Rooms, includeAll)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := arguments(request)["room_id"].(string)
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var rm room.Room
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &rm); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(rm)), nil
}

func (c *Client) handleBrokerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats struct {
		service.Stats
		Connections int `json:"connections"`
	}
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Broker stats\n")
	fmt.Fprintf(&sb, "Connections: %d\n", stats.Connections)
	fmt.Fprintf(&sb, "Identities: %d\n", stats.Identities)
	fmt.Fprintf(&sb, "Rooms: %d (%d joinable, %d started)\n", stats.Rooms, stats.JoinableRooms, stats.StartedRooms)
	fmt.Fprintf(&sb, "Seated players: %d\n", stats.SeatedPlayers)

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleProtocolReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reference := `Room Broker - WebSocket Protocol

Connect to /ws. Every frame is JSON: {"event": "<name>", "data": <payload>}

CLIENT → BROKER:
• hello                       Ask for a player identity (always first)
• create-room                 Create a room and take slot 1 as owner
• list-rooms                  Ask for rooms that are open for joining
• join-room {"roomId": "..."} Take the lowest free slot in a room
• start-game                  Owner only; closes the room to new players
• spawn-entity <any>          Relayed to the other players as entity-spawned
• sync-entity <any>           Relayed to the other players as entity-synced
• destroy-entity <any>        Relayed to the other players as entity-destroyed

BROKER → CLIENT:
• hello-ok "<playerId>"
• create-room-ok {"playerNum": 1, "room": <room>}
• list-rooms-ok [<room>, ...]
• join-room-ok {"playerNum": 1-4, "room": <room>}
• join-room-ko                No such room, already started, or full
• start-game-ko               Sender is not the owner or the game already started
• game-started                Sent to every player in the room
• room-changed <room>         Someone joined or left your room

ROOM:
{"roomId": "brave-calm-otter", "ownerId": "...", "started": false,
 "playerIds": ["...", null, null, null]}

RULES:
• A player is in at most one room; creating or joining moves you out of the old one
• Empty rooms disappear; the owner keeps ownership even after leaving
• Events from players who have not said hello are ignored
• Entity payloads are forwarded untouched and never stored`

	return mcp.NewToolResultText(reference), nil
}

// Formatting helpers

func formatRoomList(rooms []room.Room, includeAll bool) string {
	if len(rooms) == 0 {
		if includeAll {
			return "No rooms."
		}
		return "No joinable rooms."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d room(s):\n", len(rooms))
	for _, rm := range rooms {
		fmt.Fprintf(&sb, "• %s  %d/%d players  %s\n", rm.ID, rm.PlayerCount(), room.MaxPlayers, roomStatus(rm))
	}
	return sb.String()
}

func formatRoom(rm room.Room) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Room %s\n", rm.ID)
	fmt.Fprintf(&sb, "Owner: %s\n", rm.OwnerID)
	fmt.Fprintf(&sb, "Status: %s\n", roomStatus(rm))
	sb.WriteString("Slots:\n")
	for i, player := range rm.Slots {
		if player == "" {
			player = "(empty)"
		}
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, player)
	}
	return sb.String()
}

func roomStatus(rm room.Room) string {
	switch {
	case rm.Started:
		return "started"
	case rm.PlayerCount() >= room.MaxPlayers:
		return "full"
	default:
		return "waiting"
	}
}
