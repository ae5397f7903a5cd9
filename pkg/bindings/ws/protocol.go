// Package ws exposes the Volume Control Service to remote observers and
// controllers over websocket, one JSON message per frame.
//
// Every connection gets its own subscriptions, mirroring the per-link CCCDs of
// the GATT binding. Requests carry an optional ID echoed in the reply.
//
//	-> {"type":"subscribe","characteristic":"state","enabled":true}
//	<- {"type":"ack","id":"..."}
//	-> {"type":"write","data":"AQA="}             (base64 [0x01, 0x00])
//	<- {"type":"notify","characteristic":"state","data":"igAB"}
//	<- {"type":"result","count":2}
//	-> {"type":"read","characteristic":"flags"}
//	<- {"type":"value","characteristic":"flags","data":"AQ=="}
//
// A rejected request is answered with a non-zero ATT code in "code".
package ws

// Message types.
const (
	TypeSubscribe = "subscribe"
	TypeWrite     = "write"
	TypeRead      = "read"
	TypeAck       = "ack"
	TypeResult    = "result"
	TypeValue     = "value"
	TypeNotify    = "notify"
	TypeError     = "error"
)

// Message is the single frame type used in both directions.
type Message struct {
	Type           string `json:"type"`
	ID             string `json:"id,omitempty"`
	Characteristic string `json:"characteristic,omitempty"`
	Enabled        bool   `json:"enabled,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	MaxLen         int    `json:"max_len,omitempty"`
	Data           []byte `json:"data,omitempty"`
	Count          int    `json:"count,omitempty"`
	Code           byte   `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
}
