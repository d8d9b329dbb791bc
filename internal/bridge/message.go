package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/liuscraft/trackmix/internal/playback"
	"github.com/liuscraft/trackmix/internal/tracks"
)

const (
	MessageTransport = "transport"
	MessageTracks    = "tracks"
	MessageGain      = "gain"
	MessageElement   = "element"
	MessageStatus    = "status"
	MessageError     = "error"
)

// Message webview 与引擎之间的文本帧
type Message struct {
	Type string `json:"type"`

	// transport
	Event       string  `json:"event,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	Paused      bool    `json:"paused,omitempty"`

	// tracks
	Tracks []tracks.Track `json:"tracks,omitempty"`

	// gain
	Index  int     `json:"index,omitempty"`
	Active bool    `json:"active,omitempty"`
	Gain   float64 `json:"gain,omitempty"`

	// element：video 元素原生音频的格式，随后的二进制帧按此解释
	SampleRate int `json:"sampleRate,omitempty"`
	Channels   int `json:"channels,omitempty"`
}

func decodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch msg.Type {
	case MessageTransport:
		if !playback.EventType(msg.Event).Valid() {
			return nil, fmt.Errorf("unknown transport event: %q", msg.Event)
		}
	case MessageElement:
		if msg.SampleRate <= 0 || msg.Channels <= 0 {
			return nil, fmt.Errorf("invalid element format: %d Hz, %d ch", msg.SampleRate, msg.Channels)
		}
	case MessageTracks, MessageGain, MessageStatus:
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
	return &msg, nil
}

// StatusReply 对 status 请求的应答
type StatusReply struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId"`
	State       string          `json:"state"`
	Loaded      int             `json:"loaded"`
	Total       int             `json:"total"`
	PendingPlay bool            `json:"pendingPlay"`
	ActiveNodes map[int]float64 `json:"activeNodes"`
	Intercepted bool            `json:"intercepted"`
	DefaultGain float64         `json:"defaultGain"`
}

func newStatusReply(st playback.Status) StatusReply {
	nodes := st.ActiveNodes
	if nodes == nil {
		nodes = map[int]float64{}
	}
	return StatusReply{
		Type:        MessageStatus,
		SessionID:   st.SessionID,
		State:       st.State.String(),
		Loaded:      st.Ready.Loaded,
		Total:       st.Ready.Total,
		PendingPlay: st.PendingPlay,
		ActiveNodes: nodes,
		Intercepted: st.Intercepted,
		DefaultGain: st.DefaultGain,
	}
}

type errorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
