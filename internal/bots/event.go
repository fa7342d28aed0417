package bots

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// EventTypeMessageReceive is the only v2 event type the relay acts on.
	EventTypeMessageReceive = "im.message.receive_v1"

	typeURLVerification = "url_verification"
)

// ErrExtraction marks a message event whose body lacks the sender or text.
var ErrExtraction = errors.New("message extraction failed")

// Kind is the outcome of classifying a webhook payload.
type Kind int

const (
	KindMalformed Kind = iota
	KindVerification
	KindMessage
	KindUnsupportedV1
	KindUnsupportedEvent
)

func (k Kind) String() string {
	switch k {
	case KindVerification:
		return "verification"
	case KindMessage:
		return "message"
	case KindUnsupportedV1:
		return "unsupported_v1"
	case KindUnsupportedEvent:
		return "unsupported_event"
	default:
		return "malformed"
	}
}

// Classification describes an inbound payload. Which fields are set
// depends on Kind.
type Classification struct {
	Kind Kind
	// Challenge is echoed back for KindVerification, verbatim.
	Challenge any
	// Token is the verification token the payload carries, if any.
	Token string
	// Header and Event are set for v2 payloads.
	Header    map[string]any
	Event     map[string]any
	EventType string
	EventID   string
	// Reason explains KindMalformed and the unsupported kinds.
	Reason string
}

// Classify decides what an inbound webhook payload is. It never panics on
// unexpected shapes; anything it cannot make sense of is KindMalformed.
func Classify(payload any) Classification {
	root, ok := payload.(map[string]any)
	if !ok {
		return malformed("payload is not a JSON object")
	}
	if len(root) == 0 {
		return malformed("payload is empty")
	}

	token, _ := root["token"].(string)

	if t, _ := root["type"].(string); t == typeURLVerification {
		challenge, ok := root["challenge"]
		if !ok {
			return malformed("url_verification payload has no challenge")
		}
		return Classification{Kind: KindVerification, Challenge: challenge, Token: token}
	}

	if _, ok := root["schema"]; !ok {
		return Classification{
			Kind:   KindUnsupportedV1,
			Token:  token,
			Reason: "legacy v1 event payloads are not supported",
		}
	}

	header, err := objectAt(root, "header")
	if err != nil {
		return malformed(err.Error())
	}
	event, err := objectAt(root, "event")
	if err != nil {
		return malformed(err.Error())
	}
	eventType, err := stringAt(header, "event_type")
	if err != nil {
		return malformed("header: " + err.Error())
	}

	c := Classification{
		Header:    header,
		Event:     event,
		EventType: eventType,
	}
	c.Token, _ = header["token"].(string)
	c.EventID, _ = header["event_id"].(string)

	if eventType != EventTypeMessageReceive {
		c.Kind = KindUnsupportedEvent
		c.Reason = fmt.Sprintf("event type %q is not supported", eventType)
		return c
	}
	c.Kind = KindMessage
	return c
}

func malformed(reason string) Classification {
	return Classification{Kind: KindMalformed, Reason: reason}
}

// ExtractMessage pulls the sender and text out of a message-receive event.
// The message content is itself a JSON document carried as a string.
func ExtractMessage(header, event map[string]any) (ChatMessage, error) {
	openID, err := stringAt(event, "sender", "sender_id", "open_id")
	if err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if openID == "" {
		return ChatMessage{}, fmt.Errorf("%w: sender.sender_id.open_id is empty", ErrExtraction)
	}

	raw, err := stringAt(event, "message", "content")
	if err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	var content any
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: message.content is not JSON: %v", ErrExtraction, err)
	}
	contentObj, ok := content.(map[string]any)
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: message.content is not a JSON object", ErrExtraction)
	}
	text, err := stringAt(contentObj, "text")
	if err != nil {
		return ChatMessage{}, fmt.Errorf("%w: message.content: %v", ErrExtraction, err)
	}

	msg := ChatMessage{SenderOpenID: openID, Text: text}
	msg.MessageID, _ = stringAt(event, "message", "message_id")
	msg.ChatID, _ = stringAt(event, "message", "chat_id")
	msg.EventID, _ = stringAt(header, "event_id")
	return msg, nil
}

// lookup walks nested objects along path.
func lookup(m map[string]any, path ...string) (any, error) {
	var cur any = m
	for i, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s is not an object", strings.Join(path[:i], "."))
		}
		v, ok := obj[key]
		if !ok || v == nil {
			return nil, fmt.Errorf("missing field %s", strings.Join(path[:i+1], "."))
		}
		cur = v
	}
	return cur, nil
}

func objectAt(m map[string]any, path ...string) (map[string]any, error) {
	v, err := lookup(m, path...)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an object", strings.Join(path, "."))
	}
	return obj, nil
}

func stringAt(m map[string]any, path ...string) (string, error) {
	v, err := lookup(m, path...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is not a string", strings.Join(path, "."))
	}
	return s, nil
}
