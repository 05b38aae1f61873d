// Command chat runs an interactive conversation against a tool-augmented
// model backend. The stock site tools are served over an in-process channel,
// so the model can call them mid-turn.
//
// Examples:
//
//	export GEMINI_API_KEY=...
//	go run ./cmd/chat -message "Run a security scan of my site"
//
//	export OPENAI_API_KEY=...
//	go run ./cmd/chat -provider openai -model gpt-4o-mini
//
// Trailing arguments are read as image attachments for the first turn.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	angiehost "github.com/angie-labs/angiehost"
	"github.com/angie-labs/angiehost/pkg/cache"
	"github.com/angie-labs/angiehost/pkg/channel"
	"github.com/angie-labs/angiehost/pkg/logx"
	"github.com/angie-labs/angiehost/pkg/models"
	"github.com/angie-labs/angiehost/pkg/tools"
	"github.com/joho/godotenv"
)

var (
	flagProvider = flag.String("provider", "gemini", "Model provider: gemini|openai|anthropic|ollama|dummy")
	flagModel    = flag.String("model", "", "Model ID for the selected provider (provider default if empty)")
	flagSystem   = flag.String("system", "You are a helpful site assistant.", "System prompt")
	flagSession  = flag.String("session", "default", "Session ID for transcript caching")
	flagMessage  = flag.String("message", "", "Run a single turn and exit instead of the REPL")
	flagTimeout  = flag.Duration("timeout", 120*time.Second, "Per-turn timeout")
	flagVerbose  = flag.Bool("verbose", false, "Enable debug logging")
	flagNoStream = flag.Bool("no-stream", false, "Wait for complete replies instead of streaming")
)

func main() {
	// Best effort; the environment may carry the keys directly.
	_ = godotenv.Load()
	flag.Parse()

	level := logx.LevelWarn
	if *flagVerbose {
		level = logx.LevelDebug
	}
	log := logx.NewStdLogger(level)

	model, err := buildModel(*flagProvider, *flagModel, log)
	if err != nil {
		fail(err)
	}

	registry := tools.NewRegistry(log)
	tools.RegisterStandardTools(registry)

	hostEnd, toolEnd := channel.NewPair()
	server := channel.NewServer(toolEnd, registry, log)
	serveCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	go func() {
		if err := server.Serve(serveCtx); err != nil {
			log.Debug("tool channel closed: %v", err)
		}
	}()
	client := channel.NewClient(hostEnd, log)
	defer client.Close()

	opts := angiehost.Options{
		Model:        model,
		Tools:        client,
		Logger:       log,
		SystemPrompt: *flagSystem,
		SessionID:    *flagSession,
		Sessions:     cache.NewSessionCache(16, time.Hour),
		Resume:       true,
	}
	if !*flagNoStream {
		opts.OnDelta = func(delta string) { fmt.Print(delta) }
	}

	host, err := angiehost.New(opts)
	if err != nil {
		fail(err)
	}

	images, err := loadImages(flag.Args()...)
	if err != nil {
		fail(err)
	}

	if *flagMessage != "" {
		runTurn(host, *flagMessage, images, *flagTimeout, *flagNoStream)
		return
	}

	fmt.Printf("chat via %s; empty line or Ctrl-D exits\n", *flagProvider)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		runTurn(host, line, images, *flagTimeout, *flagNoStream)
		images = nil
	}
	if err := scanner.Err(); err != nil {
		fail(err)
	}
}

func runTurn(host *angiehost.Host, text string, images []models.Image, timeout time.Duration, printFinal bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	history, err := host.SubmitTurn(ctx, text, angiehost.TurnOptions{Images: images})
	if err != nil {
		// Only reentrancy surfaces here, which a sequential REPL never hits.
		fail(err)
	}
	if printFinal {
		fmt.Print(history[len(history)-1].Content)
	}
	fmt.Println()
}

func buildModel(provider, model string, log logx.Logger) (models.Client, error) {
	switch strings.ToLower(provider) {
	case "gemini":
		return models.NewGeminiLLM(models.GeminiOptions{Model: model, Logger: log}), nil
	case "openai":
		if model == "" {
			model = "gpt-4o-mini"
		}
		return models.NewOpenAILLM(model), nil
	case "anthropic":
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		return models.NewAnthropicLLM(model), nil
	case "ollama":
		if model == "" {
			model = "llama3.2"
		}
		return models.NewOllamaLLM(model)
	case "dummy":
		return models.NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// loadImages reads attachment paths with best-effort MIME detection.
func loadImages(paths ...string) ([]models.Image, error) {
	var out []models.Image
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		m := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if m == "" {
			peek := data
			if len(peek) > 512 {
				peek = peek[:512]
			}
			m = http.DetectContentType(peek)
		}
		out = append(out, models.Image{MIME: m, Data: data})
	}
	return out, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
