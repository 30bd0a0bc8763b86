package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-cfo/internal/delegation"
	"github.com/zombor/expense-cfo/internal/expense"
	"github.com/zombor/expense-cfo/internal/extraction"
	"github.com/zombor/expense-cfo/internal/interpretation"
	"github.com/zombor/expense-cfo/internal/notify"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("expense-cfo")
	var (
		port             = fs.IntLong("port", 8080, "HTTP server port")
		dbPath           = fs.StringLong("db", "", "Database file path (empty = in-memory state only)")
		sessionTTL       = fs.DurationLong("session-ttl", 0, "Pending clarification TTL (0 = never expires)")
		providerType     = fs.StringLong("provider", "gemini", "AI provider: 'gemini' or 'ollama'")
		geminiKey        = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiOCRModel   = fs.StringLong("gemini-ocr-model", "gemini-2.5-pro", "Gemini vision model for receipt OCR")
		geminiTextModel  = fs.StringLong("gemini-text-model", "gemini-2.5-flash", "Gemini text model for categorization")
		ollamaURL        = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaOCRModel   = fs.StringLong("ollama-ocr-model", "llava", "Ollama vision model (e.g., llava, qwen2-vl, bakllava)")
		ollamaTextModel  = fs.StringLong("ollama-text-model", "llama3.1", "Ollama text model for categorization")
		notifierType     = fs.StringLong("notifier", "log", "Notifier type: 'poke' or 'log'")
		pokeKey          = fs.StringLong("poke-key", "", "Poke API key (or set POKE_API_KEY env var)")
		pokeURL          = fs.StringLong("poke-url", "", "Poke webhook URL (default: official endpoint)")
		delegate         = fs.BoolLong("delegate", "Route provider calls through delegated workers")
		delegateTimeout  = fs.DurationLong("delegate-timeout", 30*time.Second, "Bounded wait for a delegated stage")
		delegateWorkers  = fs.IntLong("delegate-workers", 2, "Workers per delegated capability")
		authUser         = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass         = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion      = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_CFO"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize session store and usage ledger
	var (
		sessions expense.SessionStore
		ledger   expense.UsageLedger
	)
	if *dbPath != "" {
		slog.Info("Initializing database...", "path", *dbPath)
		db, err := expense.NewBoltDB(*dbPath, *sessionTTL)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		sessions = db
		ledger = db
	} else {
		sessions = expense.NewMemorySessionStore(*sessionTTL)
		ledger = expense.NewMemoryLedger()
	}

	// Initialize providers based on type
	var (
		extractor   extraction.Extractor
		interpreter interpretation.Interpreter
		costs       = expense.DefaultCostModel()
		err         error
	)
	switch *providerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini providers...", "ocr_model", *geminiOCRModel, "text_model", *geminiTextModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiOCRModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini extractor", "error", err)
			os.Exit(1)
		}
		interpreter, err = interpretation.NewGemini(apiKey, *geminiTextModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini interpreter", "error", err)
			os.Exit(1)
		}
		costs.ExtractionProvider = *geminiOCRModel
		costs.InterpretationProvider = *geminiTextModel
	case "ollama":
		slog.Info("Initializing Ollama providers...", "url", *ollamaURL, "ocr_model", *ollamaOCRModel, "text_model", *ollamaTextModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaOCRModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama extractor", "error", err)
			os.Exit(1)
		}
		interpreter, err = interpretation.NewOllama(*ollamaURL, *ollamaTextModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama interpreter", "error", err)
			os.Exit(1)
		}
		costs.ExtractionProvider = *ollamaOCRModel
		costs.InterpretationProvider = *ollamaTextModel
	default:
		slog.Error("Invalid provider type", "type", *providerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer extractor.Close()
	defer interpreter.Close()

	// Initialize notifier
	var notifier notify.Notifier
	switch *notifierType {
	case "poke":
		apiKey := *pokeKey
		if apiKey == "" {
			apiKey = os.Getenv("POKE_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Poke API key is required. Set --poke-key flag or POKE_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Poke notifier...")
		notifier, err = notify.NewPoke(apiKey, *pokeURL)
		if err != nil {
			slog.Error("Failed to initialize Poke notifier", "error", err)
			os.Exit(1)
		}
	case "log":
		notifier = notify.NewLogNotifier()
	default:
		slog.Error("Invalid notifier type", "type", *notifierType, "valid", "poke or log")
		os.Exit(1)
	}

	// Optionally route every stage through delegated workers. The
	// coordinator only sees the provider interfaces either way.
	if *delegate {
		slog.Info("Initializing delegation layer...", "timeout", *delegateTimeout, "workers", *delegateWorkers)
		broker := delegation.NewBroker(*delegateTimeout)
		broker.Register(delegation.KindExtract, delegation.ExtractHandler(extractor), *delegateWorkers)
		broker.Register(delegation.KindInterpret, delegation.InterpretHandler(interpreter), *delegateWorkers)
		broker.Register(delegation.KindNotify, delegation.NotifyHandler(notifier), *delegateWorkers)
		defer broker.Close()

		extractor = delegation.NewExtractor(broker)
		interpreter = delegation.NewInterpreter(broker)
		notifier = delegation.NewNotifier(broker)
	}

	// Initialize coordinator and server
	coordinator := expense.NewCoordinator(sessions, ledger, extractor, interpreter, notifier, costs)

	basicAuth := expense.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := expense.NewServer(coordinator, ledger, basicAuth, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
