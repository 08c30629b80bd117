package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

// OperatorNotifier pushes notifications to connected operators.
type OperatorNotifier interface {
	Notify(ctx context.Context, operator string, payload map[string]any) error
}

// MCPNotifier implements OperatorNotifier over MCP server notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier bound to an MCP server's sessions.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// Notify sends a notification to the operator's session.
// Best-effort: returns nil if the operator is not connected.
func (n *MCPNotifier) Notify(_ context.Context, operator string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(operator)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		n.sessions.Remove(sessionID)
		return nil
	}
	return err
}

// notifiedEvents are the sync outcomes an operator cares about.
var notifiedEvents = []string{
	schema.EventStatusChanged,
	schema.EventFlushed,
	schema.EventFlushFailed,
}

// Forward relays sync events from hub to every registered operator until
// ctx is cancelled.
func (n *MCPNotifier) Forward(ctx context.Context, hub streaming.EventHub) error {
	ch, unsubscribe, err := hub.Subscribe(ctx, streaming.EventFilter{Types: notifiedEvents})
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			payload := eventPayload(ev)
			for _, op := range n.sessions.Operators() {
				_ = n.Notify(ctx, op, payload)
			}
		}
	}
}

func eventPayload(ev streaming.SyncEvent) map[string]any {
	data := map[string]any{
		"type":    ev.Type,
		"at":      ev.At,
		"status":  ev.Status,
		"pending": ev.Pending,
	}
	if ev.Result != nil {
		data["result"] = ev.Result
	}
	if ev.Error != "" {
		data["error"] = ev.Error
	}
	return map[string]any{
		"level":  "info",
		"logger": "triage.sync",
		"data":   data,
	}
}
