// Command hica runs an agent conversation from the terminal.
//
// Usage:
//
//	hica [-config hica.toml] [-thread <id>] <message...>
//
// The message starts (or, with -thread, resumes) a conversation. When the
// agent pauses for clarification, the answer is read from stdin and the loop
// re-enters until a final response is produced.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nevindra/hica"
	"github.com/nevindra/hica/internal/config"
	"github.com/nevindra/hica/mcp"
	"github.com/nevindra/hica/provider/openaicompat"
	"github.com/nevindra/hica/store/file"
	"github.com/nevindra/hica/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	threadID := flag.String("thread", "", "resume an existing thread by id")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: hica [-config file] [-thread id] <message...>")
		os.Exit(2)
	}

	if err := run(*configPath, *threadID, strings.Join(flag.Args(), " ")); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, threadID, message string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath == "" {
		configPath = os.Getenv("HICA_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := hica.NewLogger(cfg.Log.Level)

	store, cleanup, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := hica.NewToolRegistry(hica.WithRegistryLogger(logger))
	for _, srv := range cfg.MCP {
		conn := mcp.New(mcp.Config{Command: srv.Command, Args: srv.Args, Env: srv.Env}, mcp.WithLogger(logger))
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		defer conn.Disconnect()
		if err := registry.RegisterRemote(ctx, conn); err != nil {
			return err
		}
	}

	provider := hica.WithRetry(
		openaicompat.NewProvider(cfg.Provider.APIKey(), cfg.Provider.Model, cfg.Provider.BaseURL),
		hica.RetryLogger(logger),
	)

	opts := []hica.AgentOption{
		hica.WithStore(store),
		hica.WithLogger(logger),
	}
	if cfg.Agent.SystemPrompt != "" {
		opts = append(opts, hica.WithSystemPrompt(cfg.Agent.SystemPrompt))
	}
	if cfg.Agent.MaxEventsBeforeSummarization > 0 {
		opts = append(opts, hica.WithSummarization(cfg.Agent.MaxEventsBeforeSummarization))
	}
	agent := hica.New(provider, registry, opts...)

	thread, err := loadThread(ctx, store, threadID, message)
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)
	for {
		if err := agent.Execute(ctx, thread); err != nil {
			return err
		}
		if !thread.AwaitingHumanResponse() {
			break
		}
		last, _ := thread.LastEvent()
		if m, ok := last.DataMap(); ok {
			if reason, ok := m["reason"].(string); ok && reason != "" {
				fmt.Println(reason)
			}
		}
		fmt.Print("> ")
		answer, err := stdin.ReadString('\n')
		if err != nil {
			return err
		}
		thread.AddEvent(hica.EventUserInput, strings.TrimSpace(answer))
	}

	fmt.Println(finalMessage(thread))
	return nil
}

// openStore builds the configured ThreadStore backend. The postgres backend
// needs a caller-owned pgx pool and the mongo backend a connected client, so
// this command wires the two self-contained backends and leaves the rest to
// embedding programs.
func openStore(cfg config.Store, logger *slog.Logger) (hica.ThreadStore, func(), error) {
	switch cfg.Backend {
	case "", "file":
		s, err := file.New(cfg.Dir, file.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s := sqlite.New(cfg.Path, sqlite.WithLogger(logger))
		if err := s.Init(context.Background()); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q (use file or sqlite)", cfg.Backend)
	}
}

func loadThread(ctx context.Context, store hica.ThreadStore, threadID, message string) (*hica.Thread, error) {
	if threadID == "" {
		return hica.NewThreadFromInput(message, nil), nil
	}
	thread, err := store.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	thread.AddEvent(hica.EventUserInput, message)
	return thread, nil
}

// finalMessage extracts the user-facing text of the last llm_response event.
func finalMessage(t *hica.Thread) string {
	for i := len(t.Events) - 1; i >= 0; i-- {
		ev := t.Events[i]
		if ev.Type != hica.EventLLMResponse {
			continue
		}
		if m, ok := ev.DataMap(); ok {
			if msg, ok := m["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return ""
}
