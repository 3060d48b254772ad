// Package orchestrator drives one conversational turn: it asks the model,
// dispatches any requested tools through the MCP session and repeats until
// the model produces a final answer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/conversation"
	"github.com/zhiyu220/MCP-demo/internal/logger"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/reply"
	"github.com/zhiyu220/MCP-demo/internal/tool"

	"github.com/oklog/ulid/v2"
)

type Model interface {
	Generate(ctx context.Context, history []conversation.Message) (string, error)
}

type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallResult, error)
}

// Sink receives every message appended to the conversation.
type Sink interface {
	Append(ctx context.Context, msg conversation.Message) error
}

// Recorder observes model and tool latency and turn outcomes.
type Recorder interface {
	ObserveModel(outcome string, d time.Duration)
	ObserveTool(name, outcome string, d time.Duration)
	ObserveTurn(outcome string, rounds int)
}

type Hooks struct {
	// OnModelReply sees every raw reply before it is parsed.
	OnModelReply func(ctx context.Context, round int, raw string)
	OnToolResult func(ctx context.Context, name string, result string)
}

// Result describes a finished turn.
type Result struct {
	Answer    string
	Kind      reply.Kind
	Rounds    int
	ToolCalls int
}

type Orchestrator struct {
	model    Model
	tools    ToolCaller
	registry *tool.Registry
	state    *conversation.State

	maxRounds    int
	modelTimeout time.Duration
	toolTimeout  time.Duration

	sink     Sink
	recorder Recorder
	hooks    Hooks
}

type Option func(*Orchestrator)

func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

func WithModelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.modelTimeout = d }
}

func WithToolTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.toolTimeout = d }
}

func WithSink(s Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithHooks(h Hooks) Option {
	return func(o *Orchestrator) { o.hooks = h }
}

func New(model Model, tools ToolCaller, registry *tool.Registry, state *conversation.State, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:        model,
		tools:        tools,
		registry:     registry,
		state:        state,
		maxRounds:    config.DefaultOrchestratorMaxRounds,
		modelTimeout: config.MustDuration("", config.DefaultOrchestratorModelTimeout),
		toolTimeout:  config.MustDuration("", config.DefaultOrchestratorToolTimeout),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() *conversation.State {
	return o.state
}

func (o *Orchestrator) MaxRounds() int {
	return o.maxRounds
}

// Turn appends input as a user message and loops until the model answers.
// A round is one model call. Tool calls requested in the last allowed round
// are still dispatched before the turn fails with KindMaxRounds.
func (o *Orchestrator) Turn(ctx context.Context, input string) (*Result, error) {
	ctx = logger.WithTurnID(ctx, ulid.Make().String())
	log := logger.From(ctx)

	if err := o.append(ctx, conversation.User(input)); err != nil {
		return nil, err
	}

	result := &Result{}
	for round := 1; ; round++ {
		if round > o.maxRounds {
			log.Warn("Turn exceeded round limit", "max_rounds", o.maxRounds, "tool_calls", result.ToolCalls)
			o.observeTurn(string(KindMaxRounds), o.maxRounds)
			return nil, maxRounds(o.maxRounds)
		}
		result.Rounds = round

		raw, err := o.generate(ctx, round)
		if err != nil {
			o.observeTurn(outcomeOf(err), round)
			return nil, err
		}

		parsed := reply.Parse(raw)
		log.Debug("Model reply parsed", "round", round, "kind", parsed.Kind.String(), "tool_calls", len(parsed.ToolCalls))

		if parsed.IsFinal() {
			if err := o.append(ctx, conversation.Assistant(parsed.Text)); err != nil {
				return nil, err
			}
			result.Answer = parsed.Text
			result.Kind = parsed.Kind
			log.Info("Turn finished", "rounds", round, "tool_calls", result.ToolCalls)
			o.observeTurn("answered", round)
			return result, nil
		}

		for _, call := range parsed.ToolCalls {
			if err := o.dispatch(ctx, round, call); err != nil {
				o.observeTurn(outcomeOf(err), round)
				return nil, err
			}
			result.ToolCalls++
		}
	}
}

func (o *Orchestrator) generate(ctx context.Context, round int) (string, error) {
	callCtx, cancel := withTimeout(ctx, o.modelTimeout)
	defer cancel()

	start := time.Now()
	raw, err := o.model.Generate(callCtx, o.state.History())
	elapsed := time.Since(start)
	if err != nil {
		o.observeModel("error", elapsed)
		kind := KindModel
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			kind = KindCancelled
		}
		return "", &TurnError{Kind: kind, Message: "model call failed", Round: round, Cause: err}
	}
	o.observeModel("ok", elapsed)

	logger.From(ctx).Debug("Model replied", "round", round, "bytes", len(raw), "duration", elapsed)
	if o.hooks.OnModelReply != nil {
		o.hooks.OnModelReply(ctx, round, raw)
	}
	return raw, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, round int, call reply.ToolCall) error {
	log := logger.From(ctx)

	if !o.registry.Contains(call.Name) {
		log.Error("Model requested unregistered tool", "tool", call.Name, "registered", o.registry.Names())
		o.observeTool(call.Name, "unregistered", 0)
		return unregisteredTool(call.Name, round)
	}

	callCtx, cancel := withTimeout(ctx, o.toolTimeout)
	defer cancel()

	log.Info("Calling tool", "tool", call.Name, "round", round)
	start := time.Now()
	res, err := o.tools.CallTool(callCtx, call.Name, call.Arguments)
	elapsed := time.Since(start)
	if err != nil {
		o.observeTool(call.Name, "error", elapsed)
		kind := KindProtocol
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			kind = KindCancelled
		}
		return &TurnError{Kind: kind, Message: "tool call failed", Tool: call.Name, Round: round, Cause: err}
	}

	if res == nil {
		res = &protocol.CallResult{}
	}

	outcome := "ok"
	if res.IsError {
		outcome = "tool_error"
	}
	o.observeTool(call.Name, outcome, elapsed)

	text, ok := res.FirstText()
	if !ok {
		log.Warn("Tool returned no text content", "tool", call.Name)
	}
	if res.IsError {
		log.Warn("Tool reported an error result", "tool", call.Name, "result", text)
	}
	if o.hooks.OnToolResult != nil {
		o.hooks.OnToolResult(ctx, call.Name, text)
	}

	return o.append(ctx, conversation.Tool(call.Name, text))
}

func (o *Orchestrator) append(ctx context.Context, msg conversation.Message) error {
	if err := o.state.Append(msg); err != nil {
		return fmt.Errorf("append %s message: %w", msg.Role, err)
	}
	if o.sink != nil {
		if err := o.sink.Append(ctx, msg); err != nil {
			logger.From(ctx).Warn("Failed to persist message", "role", msg.Role, "error", err)
		}
	}
	return nil
}

func (o *Orchestrator) observeModel(outcome string, d time.Duration) {
	if o.recorder != nil {
		o.recorder.ObserveModel(outcome, d)
	}
}

func (o *Orchestrator) observeTool(name, outcome string, d time.Duration) {
	if o.recorder != nil {
		o.recorder.ObserveTool(name, outcome, d)
	}
}

func (o *Orchestrator) observeTurn(outcome string, rounds int) {
	if o.recorder != nil {
		o.recorder.ObserveTurn(outcome, rounds)
	}
}

func outcomeOf(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
