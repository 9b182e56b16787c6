// Package cascade drives the vendor's session-based chat flow: start a
// cascade, send the user text, then poll the trajectory until the planner
// has produced a response. Every chat completion runs exactly one
// session; nothing is reused across requests except process identity.
package cascade

import (
	"context"
	"log/slog"
	"time"

	"cascade-bridge/internal/credentials"
	"cascade-bridge/internal/discovery"
	"cascade-bridge/internal/fault"
	"cascade-bridge/internal/registry"
	"cascade-bridge/internal/wire"
)

const (
	methodStart = "StartCascade"
	methodSend  = "SendUserCascadeMessage"
	methodPoll  = "GetCascadeTrajectorySteps"

	// StartCascade field 4: request source, 3 = interactive chat.
	sourceInteractiveChat = 3

	// Start/Send request field numbers.
	startFieldMetadata = 1
	startFieldSource   = 4

	sendFieldCascadeID = 1
	sendFieldItem      = 2
	sendFieldMetadata  = 3
	sendFieldConfig    = 5

	itemFieldText = 1

	configFieldPlanner      = 1
	plannerFieldConvConfig  = 2
	plannerFieldModelUID    = 35
	pollFieldCascadeID      = 1
	pollFieldStepOffset     = 2
	defaultPollInterval     = 1500 * time.Millisecond
	defaultPollAttempts     = 60
	fallbackOutboundMessage = "Hello"
)

// Client executes the cascade session state machine.
type Client struct {
	rpc          rpcDoer
	meta         *metadataBuilder
	pollInterval time.Duration
	pollAttempts int
}

// Option tunes a Client.
type Option func(*Client)

// WithPolling overrides the poll cadence; zero values keep the defaults.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if attempts > 0 {
			c.pollAttempts = attempts
		}
	}
}

// New builds a client whose Metadata messages use the discovered field
// layout.
func New(fields discovery.FieldMap, opts ...Option) *Client {
	c := &Client{
		rpc:          h2cDoer{},
		meta:         newMetadataBuilder(fields),
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one session for the given outbound text and resolved
// model, emitting response text through emit. The emit callback is the
// streaming seam: today the backend yields one final chunk, but callers
// must not assume that. A blocked emit suspends the producer.
func (c *Client) Complete(ctx context.Context, creds credentials.Credentials, text string, model registry.Resolved, emit func(string) error) error {
	cascadeID, err := c.start(ctx, creds)
	if err != nil {
		return err
	}
	slog.Debug("cascade started", "cascade_id", cascadeID)

	if err := c.send(ctx, creds, cascadeID, text, model); err != nil {
		return err
	}

	final, err := c.poll(ctx, creds, cascadeID)
	if err != nil {
		return err
	}
	return emit(final)
}

func (c *Client) start(ctx context.Context, creds credentials.Credentials) (string, error) {
	var payload []byte
	payload = wire.AppendMessageField(payload, startFieldMetadata, c.meta.build(creds.APIKey, creds.Version))
	payload = wire.AppendVarintField(payload, startFieldSource, sourceInteractiveChat)

	body, err := c.rpc.do(ctx, creds.GRPCPort, creds.CSRFToken, methodStart, payload)
	if err != nil {
		return "", err
	}

	cascadeID := cascadeIDFromResponse(body)
	if cascadeID == "" {
		return "", fault.New(fault.StreamError, "start cascade returned no cascade id")
	}
	return cascadeID, nil
}

func (c *Client) send(ctx context.Context, creds credentials.Credentials, cascadeID, text string, model registry.Resolved) error {
	if text == "" {
		text = fallbackOutboundMessage
	}

	item := wire.AppendStringField(nil, itemFieldText, text)

	// The vendor crashes the RPC when CascadeConfig is omitted: an empty
	// ConversationalConfig sub-message selects conversational mode, and
	// field 35 names the model.
	planner := wire.AppendMessageField(nil, plannerFieldConvConfig, nil)
	planner = wire.AppendStringField(planner, plannerFieldModelUID, model.SendUID())
	config := wire.AppendMessageField(nil, configFieldPlanner, planner)

	var payload []byte
	payload = wire.AppendStringField(payload, sendFieldCascadeID, cascadeID)
	payload = wire.AppendMessageField(payload, sendFieldItem, item)
	payload = wire.AppendMessageField(payload, sendFieldMetadata, c.meta.build(creds.APIKey, creds.Version))
	payload = wire.AppendMessageField(payload, sendFieldConfig, config)

	_, err := c.rpc.do(ctx, creds.GRPCPort, creds.CSRFToken, methodSend, payload)
	return err
}

func (c *Client) poll(ctx context.Context, creds credentials.Credentials, cascadeID string) (string, error) {
	var payload []byte
	payload = wire.AppendStringField(payload, pollFieldCascadeID, cascadeID)
	payload = wire.AppendVarintField(payload, pollFieldStepOffset, 0)

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", fault.Wrap(fault.StreamError, ctx.Err(), "request cancelled while polling")
			case <-time.After(c.pollInterval):
			}
		}

		body, err := c.rpc.do(ctx, creds.GRPCPort, creds.CSRFToken, methodPoll, payload)
		if err != nil {
			// Individual poll failures are expected while inference is in
			// progress; keep going until the attempt budget runs out.
			slog.Debug("poll attempt failed", "attempt", attempt, "err", err)
			continue
		}

		if text := plannerTextFromResponse(body); text != "" {
			return text, nil
		}
	}
	return "", fault.New(fault.StreamError, "no planner response after %d poll attempts", c.pollAttempts)
}
