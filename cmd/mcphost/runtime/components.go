package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zhiyu220/MCP-demo/internal/concurrency"
	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/conversation"
	"github.com/zhiyu220/MCP-demo/internal/logger"
	"github.com/zhiyu220/MCP-demo/internal/metrics"
	"github.com/zhiyu220/MCP-demo/internal/model"
	"github.com/zhiyu220/MCP-demo/internal/orchestrator"
	"github.com/zhiyu220/MCP-demo/internal/orchestrator/command"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
	"github.com/zhiyu220/MCP-demo/internal/store"
	"github.com/zhiyu220/MCP-demo/internal/tool"
)

// Version is reported to the MCP server during the handshake.
var Version = "dev"

type ComponentOptions struct {
	ModelName   string
	ResumeID    string
	Output      io.Writer
	Dialer      Dialer
	ModelClient orchestrator.Model
}

type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config    *config.Config
	SessionID string
	ModelName string
	Resumed   bool

	Session      *protocol.Client
	Catalog      protocol.Catalog
	Registry     *tool.Registry
	State        *conversation.State
	Transcript   store.Transcript
	Metrics      *metrics.Recorder
	Orchestrator *orchestrator.Orchestrator
	Commands     command.Handler

	output io.Writer
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, opts ComponentOptions) (*RuntimeComponents, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	components := &RuntimeComponents{
		Ctx:       ctx,
		Cancel:    cancel,
		Config:    cfg,
		ModelName: opts.ModelName,
		output:    opts.Output,
	}

	connectTimeout, err := config.DurationOrDefault(cfg.MCP.ConnectTimeout, config.DefaultMCPConnectTimeout)
	if err != nil {
		components.cleanup()
		return nil, fmt.Errorf("mcp.connect_timeout: %w", err)
	}

	session, err := opts.Dialer(ctx, protocol.Options{
		Transport:      cfg.MCP.Transport,
		URL:            cfg.MCP.URL,
		ClientName:     cfg.MCP.ClientName,
		ClientVersion:  Version,
		ConnectTimeout: connectTimeout,
	})
	if err != nil {
		components.cleanup()
		return nil, fmt.Errorf("connect to mcp server %s: %w", cfg.MCP.URL, err)
	}
	components.Session = session

	catalog, err := session.Catalog(ctx)
	if err != nil {
		components.cleanup()
		return nil, fmt.Errorf("list mcp catalog: %w", err)
	}
	components.Catalog = catalog
	components.Registry = tool.NewRegistry(catalog.ToolNames()...)
	slog.Info("MCP session ready", "server", session.ServerName(), "tools", components.Registry.Len(), "resources", len(catalog.Resources))

	transcript, err := store.Open(ctx, cfg.Session)
	if err != nil {
		components.cleanup()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	components.Transcript = transcript

	if err := components.initState(opts.ResumeID); err != nil {
		components.cleanup()
		return nil, err
	}
	components.Ctx = logger.WithSessionID(components.Ctx, components.SessionID)

	chat := opts.ModelClient
	if chat == nil {
		router, err := model.NewModelRouter(cfg.Models)
		if err != nil {
			components.cleanup()
			return nil, fmt.Errorf("init model router: %w", err)
		}
		chat = model.NewChat(router, opts.ModelName)
	}

	orchOpts, err := components.orchestratorOptions()
	if err != nil {
		components.cleanup()
		return nil, err
	}
	components.Orchestrator = orchestrator.New(chat, session, components.Registry, components.State, orchOpts...)
	components.Commands = command.NewHandler(session, catalog, components.State, components.output)

	slog.Info("Runtime components initialized successfully", "session", components.SessionID, "model", opts.ModelName, "resumed", components.Resumed)
	return components, nil
}

// initState seeds the history with a fresh system prompt. A resumed
// transcript keeps its user, tool and assistant messages; its stored system
// message is replaced since the catalog may have changed.
func (r *RuntimeComponents) initState(resumeID string) error {
	system := conversation.System(orchestrator.BuildSystemPrompt(r.Catalog))

	if resumeID == "" {
		r.SessionID = store.NewSessionID()
		r.State = conversation.NewState(system)
		return nil
	}

	if err := store.ValidateSessionID(resumeID); err != nil {
		return err
	}
	entries, err := r.Transcript.Load(r.Ctx, resumeID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return fmt.Errorf("session %s not found", resumeID)
		}
		return fmt.Errorf("load session %s: %w", resumeID, err)
	}

	messages := []conversation.Message{system}
	for _, msg := range store.Messages(entries) {
		if msg.Role == conversation.RoleSystem {
			continue
		}
		messages = append(messages, msg)
	}
	r.SessionID = resumeID
	r.Resumed = true
	r.State = conversation.NewState(messages...)
	return nil
}

func (r *RuntimeComponents) orchestratorOptions() ([]orchestrator.Option, error) {
	cfg := r.Config.Orchestrator
	modelTimeout, err := config.DurationOrDefault(cfg.ModelTimeout, config.DefaultOrchestratorModelTimeout)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.model_timeout: %w", err)
	}
	toolTimeout, err := config.DurationOrDefault(cfg.ToolTimeout, config.DefaultOrchestratorToolTimeout)
	if err != nil {
		return nil, fmt.Errorf("orchestrator.tool_timeout: %w", err)
	}

	opts := []orchestrator.Option{
		orchestrator.WithMaxRounds(cfg.MaxRounds),
		orchestrator.WithModelTimeout(modelTimeout),
		orchestrator.WithToolTimeout(toolTimeout),
		orchestrator.WithSink(store.Bind(r.Transcript, r.SessionID)),
	}

	if r.Config.Server.MetricsAddr != "" {
		r.Metrics = metrics.NewRecorder()
		opts = append(opts, orchestrator.WithRecorder(r.Metrics))
	}

	if cfg.Verbose {
		opts = append(opts, orchestrator.WithHooks(orchestrator.Hooks{
			OnModelReply: func(ctx context.Context, round int, raw string) {
				fmt.Fprintf(r.output, "\n[model round %d]\n%s\n", round, raw)
			},
			OnToolResult: func(ctx context.Context, name string, result string) {
				fmt.Fprintf(r.output, "[tool %s]\n%s\n", name, result)
			},
		}))
	}
	return opts, nil
}

// Start launches background services such as the metrics endpoint.
func (r *RuntimeComponents) Start() error {
	if r.Orchestrator == nil {
		return fmt.Errorf("orchestrator not initialized")
	}

	if r.Metrics != nil {
		addr := r.Config.Server.MetricsAddr
		slog.Info("Metrics endpoint listening", "address", addr)
		concurrency.SafeGo("metrics", func() error {
			return r.Metrics.Serve(r.Ctx, addr)
		}, nil)
	}
	return nil
}

func (r *RuntimeComponents) Stop() {
	slog.Debug("Stopping runtime components...")

	r.Cancel()

	if r.Session != nil {
		if err := r.Session.Close(); err != nil {
			slog.Warn("Failed to close mcp session", "error", err)
		}
	}

	if r.Transcript != nil {
		if err := r.Transcript.Close(); err != nil {
			slog.Warn("Failed to close session store", "error", err)
		}
	}
}

func (r *RuntimeComponents) cleanup() {
	slog.Debug("Cleaning up runtime components...")
	r.Stop()
}
