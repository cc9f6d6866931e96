// Package client provides the WebSocket connection manager, message bus and
// HTTP history client for the pulse console. Types mirror the backend wire
// protocol without importing backend packages.
package client

import "encoding/json"

// MessageType identifies the kind of inbound WebSocket message.
type MessageType string

const (
	MsgAgentThinking   MessageType = "agent_thinking"
	MsgAgentSelected   MessageType = "agent_selected"
	MsgAgentResponse   MessageType = "agent_response"
	MsgAgentError      MessageType = "agent_error"
	MsgSyncStateUpdate MessageType = "sync_state_update"
	MsgPong            MessageType = "pong"
)

// Known reports whether t is one of the message types the console understands.
// Anything else is carried through the bus untouched for forward compatibility.
func (t MessageType) Known() bool {
	switch t {
	case MsgAgentThinking, MsgAgentSelected, MsgAgentResponse, MsgAgentError, MsgSyncStateUpdate, MsgPong:
		return true
	}
	return false
}

// CommandType identifies the kind of outbound command.
type CommandType string

const (
	CmdChat      CommandType = "chat"
	CmdGetStatus CommandType = "get_status"
	CmdPing      CommandType = "ping"
)

// OutboundCommand is a command sent to the server. It never carries
// server-assigned identifiers.
type OutboundCommand struct {
	Type    CommandType `json:"type"`
	UserID  string      `json:"user_id,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ChatCommand builds a chat command for the given user.
func ChatCommand(userID, message string) OutboundCommand {
	return OutboundCommand{Type: CmdChat, UserID: userID, Message: message}
}

// StatusCommand builds a get_status command.
func StatusCommand() OutboundCommand {
	return OutboundCommand{Type: CmdGetStatus}
}

// PingCommand builds a heartbeat ping.
func PingCommand() OutboundCommand {
	return OutboundCommand{Type: CmdPing}
}

// InboundMessage is the canonical form of every inbound frame. Fields the wire
// may carry either under "data" or at the top level are resolved once during
// decoding, so consumers never look in two places.
type InboundMessage struct {
	Type      MessageType
	Agent     string
	AgentName string
	Message   string
	Error     string
	Timestamp string
	Sync      *SyncSnapshot
	Raw       json.RawMessage
}

// Node names a backend host in the hybrid pair.
type Node string

const (
	NodeMacbook Node = "macbook"
	NodeGCPVM   Node = "gcp_vm"
)

// NodeHealth is a node's reported health.
type NodeHealth string

const (
	HealthOnline  NodeHealth = "online"
	HealthOffline NodeHealth = "offline"
	HealthUnknown NodeHealth = "unknown"
)

// NormalizeNodeHealth maps anything other than online/offline to unknown.
func NormalizeNodeHealth(h NodeHealth) NodeHealth {
	switch h {
	case HealthOnline, HealthOffline:
		return h
	default:
		return HealthUnknown
	}
}

// NodeHealthMap holds per-node health as reported in a sync snapshot.
type NodeHealthMap struct {
	Macbook NodeHealth `json:"macbook"`
	GCPVM   NodeHealth `json:"gcp_vm"`
}

// SyncSnapshot is the last-known state of the two-node backend pair.
type SyncSnapshot struct {
	LastSync        string            `json:"last_sync"`
	Location        string            `json:"location"`
	ActiveNode      Node              `json:"active_node"`
	Health          NodeHealthMap     `json:"health"`
	LastHeartbeat   string            `json:"last_heartbeat"`
	PendingHandover bool              `json:"pending_handover"`
	PendingChanges  []json.RawMessage `json:"pending_changes,omitempty"`
	NodeHistory     []json.RawMessage `json:"node_history,omitempty"`
}

// HistoryEntry is one persisted chat turn returned by the history endpoint.
type HistoryEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is the shape returned by /api/chat/history/{userID}.
type HistoryResponse struct {
	UserID   string         `json:"user_id,omitempty"`
	Messages []HistoryEntry `json:"messages"`
	Count    int            `json:"count,omitempty"`
}

// Status is the transport lifecycle state of a Manager.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosing    Status = "closing"
	StatusClosed     Status = "closed"
)

// EventKind tells bus subscribers what an Event carries.
type EventKind int

const (
	// EventMessage carries a decoded inbound message.
	EventMessage EventKind = iota
	// EventStatus carries a transport status transition.
	EventStatus
)

// Event is what the bus delivers to subscribers.
type Event struct {
	Kind    EventKind
	Message InboundMessage
	Status  Status
}

// MessageEvent wraps an inbound message as a bus event.
func MessageEvent(msg InboundMessage) Event {
	return Event{Kind: EventMessage, Message: msg}
}

// StatusEvent wraps a status transition as a bus event.
func StatusEvent(s Status) Event {
	return Event{Kind: EventStatus, Status: s}
}
