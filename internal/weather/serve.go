package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/concurrency"

	"github.com/mark3labs/mcp-go/server"
)

const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

type ServeOptions struct {
	Transport  string
	ListenAddr string
	// PublicURL is the base URL clients reach the SSE endpoint on.
	PublicURL string
}

// Handler builds the HTTP surface for the chosen transport.
// SSE serves /sse and /message; streamable HTTP serves /mcp.
func (s *Server) Handler(opts ServeOptions) (http.Handler, error) {
	mux := http.NewServeMux()
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", TransportSSE:
		baseURL := strings.TrimSuffix(strings.TrimSpace(opts.PublicURL), "/")
		if baseURL == "" {
			baseURL = "http://" + opts.ListenAddr
		}
		sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
		mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
		mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	case TransportStreamableHTTP:
		mux.Handle("/mcp", corsMiddleware(server.NewStreamableHTTPServer(s.mcpServer)))
	default:
		return nil, fmt.Errorf("unsupported transport %q", opts.Transport)
	}
	return mux, nil
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, opts ServeOptions) error {
	handler, err := s.Handler(opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	slog.Info("MCP server listening", "address", opts.ListenAddr, "transport", opts.Transport)
	concurrency.SafeGo("mcp-http", httpServer.ListenAndServe, func(err error) {
		serverErrors <- err
	})

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
