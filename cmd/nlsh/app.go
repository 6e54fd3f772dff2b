package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/Lin-Jiong-HDU/nlsh/internal/ai"
	"github.com/Lin-Jiong-HDU/nlsh/internal/ai/openai"
	"github.com/Lin-Jiong-HDU/nlsh/internal/cache"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/queue"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
	"github.com/Lin-Jiong-HDU/nlsh/internal/prompt"
	"github.com/Lin-Jiong-HDU/nlsh/internal/storage"
	"github.com/Lin-Jiong-HDU/nlsh/internal/terminal"
)

// errNoAPIKey is returned when a command needs the model but no key is set.
var errNoAPIKey = errors.New("no AI API key configured; run 'nlsh key set' or set NLSH_AI_API_KEY")

// appNeeds says which parts of the app a command uses.
type appNeeds struct {
	provider bool
	engine   bool
	queue    bool
	// sessionID tags deferred tasks; a fresh ID is used when empty.
	sessionID string
}

// app holds everything a command wires together.
type app struct {
	cfg         *storage.Config
	log         *logrus.Logger
	logFile     io.Closer
	queue       *queue.Manager
	prompter    *terminal.Prompter
	coordinator *execution.Coordinator
	engine      *core.Engine
	renderer    *terminal.Renderer
}

func loadConfig(opts *rootOptions) (*storage.Config, error) {
	dir, err := storage.GetConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := storage.Load(dir, opts.configFile)
	if err != nil {
		return nil, err
	}

	if opts.safe {
		cfg.Security.SafeMode = true
	}
	if opts.fast {
		cfg.Execution.FastMode = true
	}
	if opts.timeout > 0 {
		cfg.Execution.Timeout = opts.timeout
	}
	if opts.deferTasks {
		cfg.Execution.DeferWhenNonInteractive = true
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newApp(opts *rootOptions, needs appNeeds) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, logFile, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, logFile: logFile}
	a.renderer = terminal.NewRenderer(os.Stdout, stdoutWidth(), opts.noRender)

	if needs.queue || cfg.Execution.DeferWhenNonInteractive {
		sessionID := needs.sessionID
		if sessionID == "" {
			sessionID = storage.NewSession(cfg.Dir).ID
		}
		q, err := queue.NewQueue(cfg.QueuePath(), sessionID)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.queue = q
	}

	if !needs.engine && !needs.queue {
		return a, nil
	}

	a.prompter = terminal.NewPrompter(os.Stdin, os.Stdout, opts.noRender)
	a.prompter.AssumeYes = opts.assumeYes
	if cfg.Execution.DeferWhenNonInteractive {
		a.prompter.Queue = a.queue
	}

	coordinator, err := newCoordinator(cfg, a.prompter.Confirm, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.coordinator = coordinator

	if !needs.engine {
		return a, nil
	}

	var provider ai.Provider
	if needs.provider {
		provider, err = newProvider(cfg.AI)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	engineOpts := []core.Option{core.WithLogger(log)}
	if cfg.Cache.Enabled {
		engineOpts = append(engineOpts, core.WithCache(cache.New[core.Extraction](cfg.Cache.Options())))
	}
	if cfg.AI.Prompt != "" {
		engineOpts = append(engineOpts, core.WithPrompt(prompt.NewLoader(cfg.PromptsDir()), cfg.AI.Prompt))
	}
	a.engine = core.NewEngine(provider, coordinator, engineOpts...)
	return a, nil
}

// Close releases the queue and the log file.
func (a *app) Close() {
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close task queue")
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func newCoordinator(cfg *storage.Config, confirm execution.ConfirmFunc, log *logrus.Logger) (*execution.Coordinator, error) {
	rules, err := cfg.Security.Rules()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	policy := cfg.Policy()
	policy.Confirm = confirm
	return execution.NewCoordinator(security.NewClassifier(&cfg.Security, rules), policy, log), nil
}

func newProvider(cfg storage.AIConfig) (ai.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "glm", "zhipu", "compatible":
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, errNoAPIKey
	}
	return openai.NewClient(cfg.OpenAI())
}

// newLogger builds the logger from the log section. Logs go to stderr unless
// a file is configured.
func newLogger(cfg storage.LogConfig) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: cfg.File == ""})
	}

	if cfg.File == "" {
		return log, nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f, nil
}

func terminalWidth(f *os.File, fallback int) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
