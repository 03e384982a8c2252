// Package wire defines the notification message exchanged with the
// timer-control collaborator and its JSON and msgpack encodings.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

type NotificationMessage struct {
	Type       string  `json:"type" msgpack:"type"`
	GeofenceID string  `json:"geofence_id" msgpack:"geofence_id"`
	Label      string  `json:"label" msgpack:"label"`
	Minutes    int     `json:"minutes,omitempty" msgpack:"minutes,omitempty"`
	Hours      float64 `json:"hours,omitempty" msgpack:"hours,omitempty"`
	Timestamp  int64   `json:"timestamp" msgpack:"timestamp"`
}

type Codec interface {
	ContentType() string
	Marshal(msg *NotificationMessage) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Marshal(msg *NotificationMessage) ([]byte, error) {
	return json.Marshal(msg)
}

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return ContentTypeMsgpack }

func (msgpackCodec) Marshal(msg *NotificationMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

// NewCodec accepts "json" (default when empty) or "msgpack".
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Decode picks the decoder from the AMQP content type.
func Decode(contentType string, body []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	switch contentType {
	case ContentTypeMsgpack:
		if err := msgpack.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode msgpack: %w", err)
		}
	case ContentTypeJSON, "":
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	return &msg, nil
}
