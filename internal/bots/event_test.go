package bots

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

const messageEvent = `{
	"schema": "2.0",
	"header": {"event_id": "ev_1", "event_type": "im.message.receive_v1", "token": "vt"},
	"event": {
		"sender": {"sender_id": {"open_id": "ou_123"}},
		"message": {"message_id": "om_1", "chat_id": "oc_1", "content": "{\"text\":\"hello\"}"}
	}
}`

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Kind
	}{
		{"verification", `{"type":"url_verification","challenge":"abc"}`, KindVerification},
		{"verification without challenge", `{"type":"url_verification"}`, KindMalformed},
		{"message event", messageEvent, KindMessage},
		{"other v2 event", `{"schema":"2.0","header":{"event_type":"other"},"event":{}}`, KindUnsupportedEvent},
		{"empty object", `{}`, KindMalformed},
		{"legacy v1", `{"uuid":"u1","event":{"type":"message"},"type":"event_callback"}`, KindUnsupportedV1},
		{"array", `[1,2]`, KindMalformed},
		{"string", `"hello"`, KindMalformed},
		{"null", `null`, KindMalformed},
		{"v2 without header", `{"schema":"2.0","event":{}}`, KindMalformed},
		{"v2 header not object", `{"schema":"2.0","header":"x","event":{}}`, KindMalformed},
		{"v2 event not object", `{"schema":"2.0","header":{"event_type":"im.message.receive_v1"},"event":[]}`, KindMalformed},
		{"v2 event type not string", `{"schema":"2.0","header":{"event_type":7},"event":{}}`, KindMalformed},
		{"v2 missing event type", `{"schema":"2.0","header":{},"event":{}}`, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(decode(t, tt.payload))
			if got.Kind != tt.want {
				t.Errorf("Classify() kind = %s, want %s (reason %q)", got.Kind, tt.want, got.Reason)
			}
			if got.Kind != KindVerification && got.Kind != KindMessage && got.Reason == "" {
				t.Error("expected a reason for a rejected payload")
			}
		})
	}
}

func TestClassifyVerificationEchoesChallenge(t *testing.T) {
	c := Classify(decode(t, `{"type":"url_verification","challenge":"abc","token":"vt"}`))
	if c.Challenge != "abc" {
		t.Errorf("expected challenge abc, got %v", c.Challenge)
	}
	if c.Token != "vt" {
		t.Errorf("expected token vt, got %q", c.Token)
	}

	// Non-string challenges are passed through verbatim.
	c = Classify(decode(t, `{"type":"url_verification","challenge":42}`))
	if c.Challenge != float64(42) {
		t.Errorf("expected numeric challenge, got %v", c.Challenge)
	}
}

func TestClassifyMessageFields(t *testing.T) {
	c := Classify(decode(t, messageEvent))
	if c.EventID != "ev_1" || c.Token != "vt" || c.EventType != EventTypeMessageReceive {
		t.Errorf("unexpected classification %+v", c)
	}
	if c.Header == nil || c.Event == nil {
		t.Fatal("expected header and event")
	}
}

func TestClassifyUnsupportedEventNamesType(t *testing.T) {
	c := Classify(decode(t, `{"schema":"2.0","header":{"event_type":"im.chat.disbanded_v1"},"event":{}}`))
	if c.EventType != "im.chat.disbanded_v1" {
		t.Errorf("expected event type to be recorded, got %q", c.EventType)
	}
	if c.Reason != `event type "im.chat.disbanded_v1" is not supported` {
		t.Errorf("unexpected reason %q", c.Reason)
	}
}

func TestExtractMessage(t *testing.T) {
	c := Classify(decode(t, messageEvent))
	msg, err := ExtractMessage(c.Header, c.Event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ChatMessage{EventID: "ev_1", MessageID: "om_1", ChatID: "oc_1", SenderOpenID: "ou_123", Text: "hello"}
	if msg != want {
		t.Errorf("got %+v, want %+v", msg, want)
	}
}

func TestExtractMessageFailures(t *testing.T) {
	tests := []struct {
		name  string
		event string
	}{
		{"no sender", `{"message":{"content":"{\"text\":\"hi\"}"}}`},
		{"sender_id not object", `{"sender":{"sender_id":"ou"},"message":{"content":"{\"text\":\"hi\"}"}}`},
		{"open_id not string", `{"sender":{"sender_id":{"open_id":5}},"message":{"content":"{\"text\":\"hi\"}"}}`},
		{"empty open_id", `{"sender":{"sender_id":{"open_id":""}},"message":{"content":"{\"text\":\"hi\"}"}}`},
		{"no message", `{"sender":{"sender_id":{"open_id":"ou"}}}`},
		{"content not json", `{"sender":{"sender_id":{"open_id":"ou"}},"message":{"content":"not json"}}`},
		{"content not object", `{"sender":{"sender_id":{"open_id":"ou"}},"message":{"content":"[1]"}}`},
		{"content without text", `{"sender":{"sender_id":{"open_id":"ou"}},"message":{"content":"{\"image_key\":\"k\"}"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := decode(t, tt.event).(map[string]any)
			_, err := ExtractMessage(map[string]any{}, event)
			if !errors.Is(err, ErrExtraction) {
				t.Errorf("expected ErrExtraction, got %v", err)
			}
		})
	}
}
