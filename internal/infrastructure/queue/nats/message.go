package nats

import (
	"strings"

	"github.com/nats-io/nats.go"
)

// The envelope ID doubles as the message ID so JetStream-backed subjects
// drop duplicate publishes.
func envelopeMessage(subject, envelopeID string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Header.Set(nats.MsgIdHdr, envelopeID)
	msg.Data = []byte(envelopeID)
	return msg
}

func envelopeIDFromMessage(msg *nats.Msg) string {
	if id := strings.TrimSpace(string(msg.Data)); id != "" {
		return id
	}
	if msg.Header != nil {
		return strings.TrimSpace(msg.Header.Get(nats.MsgIdHdr))
	}
	return ""
}
