package models

import "time"

const (
	// MetadataSenderPhone is the metadata key carrying the sender's phone number.
	MetadataSenderPhone = "sender_phone"

	// MetadataSenderName is the metadata key carrying the sender's display name.
	MetadataSenderName = "sender_name"
)

// Message is one inbound chat message.
type Message struct {
	ID          string
	UserID      string
	Content     string
	MessageType MessageType
	Timestamp   time.Time

	// Metadata carries transport attributes such as sender_phone.
	Metadata map[string]string

	// Media holds raw audio or image bytes for voice and image messages.
	Media []byte
}

// SenderPhone returns the sender_phone metadata value, or "".
func (m Message) SenderPhone() string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[MetadataSenderPhone]
}

// Response is the single reply produced for an inbound message.
type Response struct {
	Content     string
	MessageType MessageType
	Metadata    map[string]string
}

// TextResponse builds a plain text response.
func TextResponse(content string) Response {
	return Response{Content: content, MessageType: MessageText}
}
