package bots

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ziadkadry99/larkbot/internal/logging"
)

// Dispatcher starts the reply pipeline for a message event without
// waiting for it. An empty task ID means the event was refused.
type Dispatcher interface {
	Dispatch(header, event map[string]any) string
}

// LarkHandler handles incoming Lark/Feishu event callbacks.
type LarkHandler struct {
	dispatcher        Dispatcher
	dedupe            *Deduper
	verificationToken string
	log               *slog.Logger
}

// LarkHandlerConfig configures a LarkHandler.
type LarkHandlerConfig struct {
	// VerificationToken, when set, must match the token carried by
	// every callback.
	VerificationToken string
	// Dedupe may be nil.
	Dedupe *Deduper
	Logger *slog.Logger
}

// NewLarkHandler creates a new Lark event handler.
func NewLarkHandler(dispatcher Dispatcher, cfg LarkHandlerConfig) *LarkHandler {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &LarkHandler{
		dispatcher:        dispatcher,
		dedupe:            cfg.Dedupe,
		verificationToken: cfg.VerificationToken,
		log:               log,
	}
}

// HandleEvent handles one event callback (HTTP POST). Message events are
// acknowledged before any reply work happens.
func (h *LarkHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	c := Classify(payload)
	if c.Kind == KindMalformed {
		h.log.Warn("malformed event rejected", "reason", c.Reason)
		http.Error(w, c.Reason, http.StatusBadRequest)
		return
	}

	if h.verificationToken != "" &&
		subtle.ConstantTimeCompare([]byte(c.Token), []byte(h.verificationToken)) != 1 {
		h.log.Warn("event rejected: verification token mismatch", "kind", c.Kind.String())
		http.Error(w, "invalid verification token", http.StatusUnauthorized)
		return
	}

	switch c.Kind {
	case KindVerification:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"challenge": c.Challenge})

	case KindMessage:
		if h.dedupe.Seen(c.EventID) {
			h.log.Info("duplicate event ignored", "event_id", c.EventID)
			w.WriteHeader(http.StatusOK)
			return
		}
		taskID := h.dispatcher.Dispatch(c.Header, c.Event)
		if taskID == "" {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		h.log.Debug("message event accepted", "event_id", c.EventID, "task_id", taskID)
		w.WriteHeader(http.StatusOK)

	default:
		h.log.Info("unsupported event rejected", "kind", c.Kind.String(), "event_type", c.EventType)
		http.Error(w, c.Reason, http.StatusUnprocessableEntity)
	}
}
