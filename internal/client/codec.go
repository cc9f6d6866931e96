package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is returned when encoding a command of an unsupported type.
	ErrUnknownCommand = errors.New("unknown command type")
	// ErrEmptyFrame is returned when decoding a frame with no content.
	ErrEmptyFrame = errors.New("empty frame")
)

// Encode serialises an outbound command. Only the fields meaningful for the
// command type are emitted.
func Encode(cmd OutboundCommand) ([]byte, error) {
	switch cmd.Type {
	case CmdChat:
		return json.Marshal(struct {
			Type    CommandType `json:"type"`
			UserID  string      `json:"user_id"`
			Message string      `json:"message"`
		}{cmd.Type, cmd.UserID, cmd.Message})
	case CmdGetStatus, CmdPing:
		return json.Marshal(struct {
			Type CommandType `json:"type"`
		}{cmd.Type})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// DecodeCommand parses a frame produced by Encode.
func DecodeCommand(frame []byte) (OutboundCommand, error) {
	if len(bytes.TrimSpace(frame)) == 0 {
		return OutboundCommand{}, ErrEmptyFrame
	}
	var cmd OutboundCommand
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return OutboundCommand{}, fmt.Errorf("decode command: %w", err)
	}
	switch cmd.Type {
	case CmdChat, CmdGetStatus, CmdPing:
		return cmd, nil
	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// Decode parses an inbound frame into its canonical form. Each convenience
// field is taken from the nested "data" object when present there and from
// the top level otherwise. Fields of an unexpected JSON type are ignored
// rather than failing the whole frame.
func Decode(frame []byte) (InboundMessage, error) {
	if len(bytes.TrimSpace(frame)) == 0 {
		return InboundMessage{}, ErrEmptyFrame
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(frame, &top); err != nil {
		return InboundMessage{}, fmt.Errorf("decode frame: %w", err)
	}
	if top == nil {
		return InboundMessage{}, fmt.Errorf("decode frame: not an object")
	}

	var data map[string]json.RawMessage
	if raw, ok := top["data"]; ok {
		// Non-object payloads (null, strings) carry nothing we can use.
		_ = json.Unmarshal(raw, &data)
	}

	msg := InboundMessage{
		Type:      MessageType(stringField(top, "type")),
		Agent:     pick(data, top, "agent"),
		AgentName: pick(data, top, "agent_name"),
		Message:   pick(data, top, "message"),
		Error:     pick(data, top, "error"),
		Timestamp: pick(data, top, "timestamp"),
		Raw:       append(json.RawMessage(nil), frame...),
	}

	if msg.Type == MsgSyncStateUpdate && data != nil {
		var snap SyncSnapshot
		if err := json.Unmarshal(top["data"], &snap); err == nil {
			msg.Sync = &snap
		}
	}
	return msg, nil
}

func pick(nested, top map[string]json.RawMessage, key string) string {
	if v := stringField(nested, key); v != "" {
		return v
	}
	return stringField(top, key)
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
