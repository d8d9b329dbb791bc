package playback

import "time"

type EventType string

const (
	EventPlay    EventType = "play"
	EventPause   EventType = "pause"
	EventPlaying EventType = "playing"
	EventWaiting EventType = "waiting"
	EventSeeking EventType = "seeking"
	EventSeeked  EventType = "seeked"
	EventEnded   EventType = "ended"
)

// Valid 是否是引擎关心的传输事件
func (t EventType) Valid() bool {
	switch t {
	case EventPlay, EventPause, EventPlaying, EventWaiting, EventSeeking, EventSeeked, EventEnded:
		return true
	default:
		return false
	}
}

// Event video 元素的传输事件
type Event struct {
	Type      EventType
	Timestamp time.Time
}

func NewEvent(t EventType) Event {
	return Event{Type: t, Timestamp: time.Now()}
}

// Transport 只读的 video 传输状态。引擎从不驱动它，只观察。
type Transport interface {
	CurrentTime() float64
	Paused() bool
	// Subscribe 注册事件回调，返回的函数用于取消订阅
	Subscribe(handler func(Event)) (unsubscribe func())
}

// State 引擎观察到的传输状态
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateSeeking
	StateStalled
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateSeeking:
		return "Seeking"
	case StateStalled:
		return "Stalled"
	default:
		return "Unknown"
	}
}

// nextState 根据事件和元素当前的 paused 属性推导下一个状态
func nextState(current State, event EventType, paused bool) State {
	switch event {
	case EventPlay, EventPlaying:
		return StatePlaying
	case EventPause:
		return StatePaused
	case EventEnded:
		return StateStopped
	case EventSeeking:
		return StateSeeking
	case EventWaiting:
		return StateStalled
	case EventSeeked:
		if paused {
			return StatePaused
		}
		return StatePlaying
	default:
		return current
	}
}
