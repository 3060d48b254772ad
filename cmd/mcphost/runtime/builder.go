package runtime

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/orchestrator"
	"github.com/zhiyu220/MCP-demo/internal/protocol"
)

// Dialer opens the MCP session. Tests swap it for an in-process connection.
type Dialer func(ctx context.Context, opts protocol.Options) (*protocol.Client, error)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithModel(name string) RuntimeBuilder
	WithResume(sessionID string) RuntimeBuilder
	WithOutput(w io.Writer) RuntimeBuilder
	WithDialer(d Dialer) RuntimeBuilder
	WithModelClient(m orchestrator.Model) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx         context.Context
	cfg         *config.Config
	modelName   string
	resumeID    string
	output      io.Writer
	dialer      Dialer
	modelClient orchestrator.Model
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

func (b *DefaultRuntimeBuilder) WithModel(name string) RuntimeBuilder {
	b.modelName = name
	return b
}

func (b *DefaultRuntimeBuilder) WithResume(sessionID string) RuntimeBuilder {
	b.resumeID = sessionID
	return b
}

func (b *DefaultRuntimeBuilder) WithOutput(w io.Writer) RuntimeBuilder {
	b.output = w
	return b
}

func (b *DefaultRuntimeBuilder) WithDialer(d Dialer) RuntimeBuilder {
	b.dialer = d
	return b
}

// WithModelClient bypasses the model router entirely.
func (b *DefaultRuntimeBuilder) WithModelClient(m orchestrator.Model) RuntimeBuilder {
	b.modelClient = m
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if b.output == nil {
		b.output = os.Stdout
	}
	if b.dialer == nil {
		b.dialer = protocol.Dial
	}
	if b.modelName == "" {
		b.modelName = b.cfg.Models.Default
	}

	return NewRuntimeComponents(b.ctx, b.cfg, ComponentOptions{
		ModelName:   b.modelName,
		ResumeID:    b.resumeID,
		Output:      b.output,
		Dialer:      b.dialer,
		ModelClient: b.modelClient,
	})
}
