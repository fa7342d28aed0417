package bots

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/larkbot/internal/logging"
)

// MessageHandler processes incoming messages and produces responses.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg ChatMessage) (*OutgoingMessage, error)
}

// TokenSource yields a currently valid tenant access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Sender delivers a text message to a platform user.
type Sender interface {
	SendText(ctx context.Context, token, receiveIDType, receiveID, text string) error
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// TaskTimeout bounds one reply pipeline. Zero means no bound.
	TaskTimeout time.Duration
	Logger      *slog.Logger
}

// Gateway runs the reply pipeline for message events: extract the
// message, ask the handler for a reply, then deliver it with a fresh
// tenant token.
type Gateway struct {
	// base parents every detached task; cancelling it aborts them.
	base    context.Context
	handler MessageHandler
	tokens  TokenSource
	sender  Sender
	timeout time.Duration
	log     *slog.Logger

	// mu orders wg.Add in Dispatch against Wait; closed is set by Wait.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewGateway creates a Gateway whose detached tasks live until ctx ends.
func NewGateway(ctx context.Context, handler MessageHandler, tokens TokenSource, sender Sender, cfg GatewayConfig) *Gateway {
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Gateway{
		base:    ctx,
		handler: handler,
		tokens:  tokens,
		sender:  sender,
		timeout: cfg.TaskTimeout,
		log:     log,
	}
}

// Dispatch starts the reply pipeline for one message event in the
// background and returns its task ID immediately. Failures are logged,
// never reported to the caller. Once Wait has been called or the lifecycle
// context has ended, no task is started and the empty ID is returned.
func (g *Gateway) Dispatch(header, event map[string]any) string {
	taskID := uuid.NewString()
	log := g.log.With("task_id", taskID)
	if id, ok := header["event_id"].(string); ok {
		log = log.With("event_id", id)
	}

	g.mu.Lock()
	if g.closed || g.base.Err() != nil {
		g.mu.Unlock()
		log.Warn("gateway is shutting down, event not dispatched")
		return ""
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("reply task panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()

		ctx := g.base
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		start := time.Now()
		if err := g.Process(ctx, header, event); err != nil {
			log.Error("reply task failed", "error", err, "duration", time.Since(start))
			return
		}
		log.Info("reply delivered", "duration", time.Since(start))
	}()
	return taskID
}

// Process runs the reply pipeline synchronously. Nothing is sent when
// extraction or token acquisition fails.
func (g *Gateway) Process(ctx context.Context, header, event map[string]any) error {
	msg, err := ExtractMessage(header, event)
	if err != nil {
		return err
	}

	reply, err := g.handler.HandleMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("handling message: %w", err)
	}
	if reply == nil {
		return nil
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquiring tenant token: %w", err)
	}
	if err := g.sender.SendText(ctx, token, reply.ReceiveIDType, reply.ReceiveID, reply.Text); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	return nil
}

// Wait stops the gateway from accepting new tasks and blocks until all
// dispatched tasks finish or ctx ends.
func (g *Gateway) Wait(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
