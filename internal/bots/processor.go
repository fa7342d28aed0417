package bots

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/larkbot/internal/feishu"
	"github.com/ziadkadry99/larkbot/internal/llm"
	"github.com/ziadkadry99/larkbot/internal/logging"
)

// ProcessorConfig holds the completion settings used for every reply.
type ProcessorConfig struct {
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	FallbackReply string
}

// Processor answers a chat message with a single-turn completion.
type Processor struct {
	provider llm.Provider
	cfg      ProcessorConfig
	log      *slog.Logger
}

// NewProcessor creates a message processor backed by provider.
func NewProcessor(provider llm.Provider, cfg ProcessorConfig, log *slog.Logger) *Processor {
	if log == nil {
		log = logging.Discard()
	}
	return &Processor{provider: provider, cfg: cfg, log: log}
}

// HandleMessage sends the message text as the only user turn and replies
// with the first completion. Any completion failure is replaced by the
// configured fallback text, so a reply is always produced.
func (p *Processor) HandleMessage(ctx context.Context, msg ChatMessage) (*OutgoingMessage, error) {
	return &OutgoingMessage{
		ReceiveIDType: feishu.ReceiveIDOpenID,
		ReceiveID:     msg.SenderOpenID,
		Text:          p.complete(ctx, msg),
	}, nil
}

func (p *Processor) complete(ctx context.Context, msg ChatMessage) string {
	if p.provider == nil {
		p.log.Error("no llm provider configured")
		return p.cfg.FallbackReply
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model:     p.cfg.Model,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: msg.Text}},
		MaxTokens: p.cfg.MaxTokens,
	})
	if err != nil {
		p.log.Error("completion failed, using fallback reply",
			"provider", p.provider.Name(), "event_id", msg.EventID, "error", err)
		return p.cfg.FallbackReply
	}
	if strings.TrimSpace(resp.Content) == "" {
		p.log.Warn("completion was empty, using fallback reply",
			"provider", p.provider.Name(), "event_id", msg.EventID, "finish_reason", resp.FinishReason)
		return p.cfg.FallbackReply
	}
	p.log.Debug("completion finished",
		"provider", p.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"duration", time.Since(start))
	return resp.Content
}
