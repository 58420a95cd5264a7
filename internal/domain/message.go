package domain

import "encoding/json"

type Event string

const (
	EventLeaderJoined Event = "leader-joined"
	EventPickSaveDir  Event = "pick-savedir"

	EventLANIP      Event = "lan-ip"
	EventSetSaveDir Event = "set-save-dir"
)

// Message is a parsed control record. Only Event is interpreted, the
// raw bytes are what gets relayed.
type Message struct {
	Event Event
	Raw   []byte
}

// ParseMessage accepts any JSON object. A missing or non-string event
// field yields an empty Event; anything that is not an object is an error.
func ParseMessage(data []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, err
	}
	if fields == nil {
		return Message{}, errNotObject
	}
	msg := Message{Raw: data}
	if raw, ok := fields["event"]; ok {
		var ev string
		if json.Unmarshal(raw, &ev) == nil {
			msg.Event = Event(ev)
		}
	}
	return msg, nil
}

type LANIPReply struct {
	Event Event  `json:"event"`
	IP    string `json:"ip"`
}

func NewLANIPReply(ip string) LANIPReply {
	return LANIPReply{Event: EventLANIP, IP: ip}
}

type SaveDirReply struct {
	Event   Event  `json:"event"`
	SaveDir string `json:"save-dir"`
}

func NewSaveDirReply(dir string) SaveDirReply {
	return SaveDirReply{Event: EventSetSaveDir, SaveDir: dir}
}
