package relay

import (
	"encoding/json"

	"github.com/vango-dev/nanostore/pkg/events"
)

// Message is the JSON frame exchanged between the hub and its clients.
//
// An empty Key announces that the sender's backend was cleared.
type Message struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Deleted bool   `json:"deleted"`
	Origin  string `json:"origin"`
}

// MessageOf converts an event into a wire frame.
func MessageOf(ev events.Event) Message {
	return Message{Key: ev.Key, Value: ev.Value, Deleted: ev.Deleted, Origin: ev.Origin}
}

// Event converts the frame back into an event.
func (m Message) Event() events.Event {
	ev := events.Event{Key: m.Key, Deleted: m.Deleted, Origin: m.Origin}
	if !m.Deleted {
		ev.Value = m.Value
	}
	return ev
}

func encodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func decodeMessage(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
