package bots

// ChatMessage is the part of a message-receive event needed to answer it.
type ChatMessage struct {
	EventID      string
	MessageID    string
	ChatID       string
	SenderOpenID string
	Text         string
}

// OutgoingMessage is a text reply to send back through the platform.
type OutgoingMessage struct {
	ReceiveIDType string
	ReceiveID     string
	Text          string
}
