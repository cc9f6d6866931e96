package server

import (
	"encoding/json"

	"github.com/layer97/pulse/internal/client"
)

// Frame is an outbound server message. The backend writes agent fields at
// the top level; sync snapshots travel under data.
type Frame struct {
	Type      client.MessageType `json:"type"`
	Agent     string             `json:"agent,omitempty"`
	AgentName string             `json:"agent_name,omitempty"`
	Message   string             `json:"message,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
	Data      interface{}        `json:"data,omitempty"`
}

// Marshal encodes the frame.
func (f Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

func ThinkingFrame(message string) Frame {
	return Frame{Type: client.MsgAgentThinking, Message: message}
}

func SelectedFrame(agent, agentName string) Frame {
	return Frame{Type: client.MsgAgentSelected, Agent: agent, AgentName: agentName}
}

func ResponseFrame(agent, agentName, message, timestamp string) Frame {
	return Frame{
		Type:      client.MsgAgentResponse,
		Agent:     agent,
		AgentName: agentName,
		Message:   message,
		Timestamp: timestamp,
	}
}

func ErrorFrame(err string) Frame {
	return Frame{Type: client.MsgAgentError, Error: err}
}

func SyncFrame(snap client.SyncSnapshot) Frame {
	return Frame{Type: client.MsgSyncStateUpdate, Data: snap}
}

func PongFrame() Frame {
	return Frame{Type: client.MsgPong}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status           string               `json:"status"`
	ActiveNode       client.Node          `json:"active_node"`
	LastHeartbeat    string               `json:"last_heartbeat"`
	Health           client.NodeHealthMap `json:"health"`
	ConnectedClients int                  `json:"connected_clients"`
}
