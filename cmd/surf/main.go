// Package main provides the surf daemon: a REST service that attaches to an
// already-running browser over its debugging port, spawns a subprocess tool
// server, and executes natural-language browsing tasks against either.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/surf/pkg/agent"
	"github.com/entrhq/surf/pkg/api"
	"github.com/entrhq/surf/pkg/browser"
	appconfig "github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/dispatch"
	"github.com/entrhq/surf/pkg/llm"
	"github.com/entrhq/surf/pkg/llm/openai"
	"github.com/entrhq/surf/pkg/llm/tokenizer"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/toolserver"
)

const (
	version      = "0.1.0"
	defaultModel = "gpt-4o"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Addr             string
	ConfigFile       string
	Endpoint         string
	NoLiveBrowser    bool
	ToolServerConfig string
	APIKey           string
	BaseURL          string
	Model            string
	ShowVersion      bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("surf v%s\n", version)
		return
	}

	if err := run(config); err != nil {
		log.Printf("surf failed: %v", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.Addr, "addr", "", "HTTP listen address (default from config, 127.0.0.1:8700)")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (JSON)")
	flag.StringVar(&config.Endpoint, "endpoint", "", "Browser debugging endpoint (default: auto-detect)")
	flag.BoolVar(&config.NoLiveBrowser, "no-live", false, "Disable live-browser attachment, subprocess only")
	flag.StringVar(&config.ToolServerConfig, "toolserver", "", "Path to tool-server worker definition (YAML)")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "Planning-service API key")
	flag.StringVar(&config.BaseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "Planning-service base URL")
	flag.StringVar(&config.Model, "model", "", "Planning-service model")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "surf - Browser Automation Orchestrator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: surf [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Serve on the default address, auto-detecting a local browser\n")
		fmt.Fprintf(os.Stderr, "  surf\n\n")
		fmt.Fprintf(os.Stderr, "  # Attach to an explicit debugging endpoint\n")
		fmt.Fprintf(os.Stderr, "  surf -endpoint http://127.0.0.1:9222\n\n")
		fmt.Fprintf(os.Stderr, "  # Subprocess-only mode, no live browser\n")
		fmt.Fprintf(os.Stderr, "  surf -no-live\n\n")
	}

	flag.Parse()
	return config
}

func run(cliConfig *CLIConfig) error {
	if err := appconfig.Initialize(cliConfig.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		log.Printf("Warning: file logging unavailable: %v", logErr)
	}
	defer logger.Close()

	browserCfg := appconfig.GetBrowser()
	serverCfg := appconfig.GetServer()

	// Live-browser handle. Attachment itself happens on POST /connect.
	handleOpts := []browser.HandleOption{}
	if seconds := browserCfg.GetCallTimeoutSeconds(); seconds > 0 {
		handleOpts = append(handleOpts, browser.WithOperationTimeout(float64(seconds*1000)))
	}
	handle := browser.NewHandle(handleOpts...)

	// Subprocess tool-server client.
	workerCfg, err := toolserver.LoadConfigFile(cliConfig.ToolServerConfig)
	if err != nil {
		return fmt.Errorf("failed to load tool-server config: %w", err)
	}
	applyToolServerSection(&workerCfg, cliConfig.ToolServerConfig)
	client, err := toolserver.NewClient(workerCfg)
	if err != nil {
		return fmt.Errorf("failed to create tool-server client: %w", err)
	}

	dispatcherOpts := []dispatch.Option{
		dispatch.WithDisabledTools(appconfig.IsToolDisabled),
	}
	if seconds := browserCfg.GetCallTimeoutSeconds(); seconds > 0 {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithCallTimeout(time.Duration(seconds)*time.Second))
	}
	dispatcher := dispatch.New(handle, client, dispatcherOpts...)

	store := agent.NewStore()
	provider := buildProvider(cliConfig, logger)

	var controllerOpts []agent.ControllerOption
	if provider != nil {
		if counter, tokErr := tokenizer.New(provider.GetModel()); tokErr == nil {
			controllerOpts = append(controllerOpts, agent.WithTokenizer(counter))
		} else {
			logger.Warnf("tokenizer unavailable, falling back to character budget: %v", tokErr)
		}
	}

	runSession := func(ctx context.Context, sessionID string, maxIterations int) error {
		opts := controllerOpts
		if maxIterations > 0 {
			opts = append(opts[:len(opts):len(opts)], agent.WithMaxIterations(maxIterations))
		}
		controller := agent.NewController(provider, dispatcher, store, opts...)
		return controller.Run(ctx, sessionID)
	}

	endpoint := cliConfig.Endpoint
	if endpoint == "" {
		endpoint = browserCfg.GetEndpoint()
	}
	addr := cliConfig.Addr
	if addr == "" {
		addr = serverCfg.GetAddr()
	}

	server := api.NewServer(api.Deps{
		Address:             addr,
		Browser:             handle,
		ToolServer:          client,
		Dispatcher:          dispatcher,
		Store:               store,
		RunSession:          runSession,
		Endpoint:            endpoint,
		DetectEndpoint:      endpointDetector(browserCfg),
		LiveBrowserDisabled: cliConfig.NoLiveBrowser || browserCfg.LiveBrowserDisabled(),
	})

	// Graceful shutdown on SIGINT/SIGTERM: drain the server, detach the
	// browser handle, stop the worker. The attached browser keeps running.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case sig := <-sigChan:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
	if err := handle.Disconnect(); err != nil {
		logger.Warnf("browser disconnect: %v", err)
	}
	if err := client.Close(); err != nil {
		logger.Warnf("tool server close: %v", err)
	}

	return nil
}

// buildProvider creates the planning-service provider from flags, config, and
// environment. A missing API key is not fatal: tool execution endpoints work
// without one, only task sessions need it.
func buildProvider(cliConfig *CLIConfig, logger *logging.Logger) llm.Provider {
	llmCfg := appconfig.GetLLM()

	apiKey := cliConfig.APIKey
	if apiKey == "" {
		apiKey = llmCfg.GetAPIKey()
	}

	model := cliConfig.Model
	if model == "" {
		model = llmCfg.GetModel()
	}
	if model == "" {
		model = defaultModel
	}

	opts := []openai.ProviderOption{openai.WithModel(model)}
	baseURL := cliConfig.BaseURL
	if baseURL == "" {
		baseURL = llmCfg.GetBaseURL()
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	provider, err := openai.NewProvider(apiKey, opts...)
	if err != nil {
		logger.Warnf("planning service not configured, task sessions disabled: %v", err)
		return nil
	}
	return provider
}

// applyToolServerSection layers the config-file section under the worker
// definition: it fills in the command and timeout only where the YAML file
// and environment left defaults.
func applyToolServerSection(workerCfg *toolserver.Config, explicitFile string) {
	section := appconfig.GetToolServer()
	if section == nil {
		return
	}

	if explicitFile == "" && os.Getenv(toolserver.EnvCommandVar) == "" {
		if command := strings.TrimSpace(section.GetCommand()); command != "" {
			fields := strings.Fields(command)
			workerCfg.Command = fields[0]
			workerCfg.Args = fields[1:]
		}
	}
	if seconds := section.GetTimeoutSeconds(); seconds > 0 {
		workerCfg.Timeout = time.Duration(seconds) * time.Second
	}
}

// endpointDetector probes the configured debug ports, or the default local
// candidates when none are configured.
func endpointDetector(browserCfg *appconfig.BrowserSection) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		ports := browserCfg.GetDebugPorts()
		if len(ports) == 0 {
			return browser.DetectEndpoint(ctx, nil)
		}
		candidates := make([]string, 0, len(ports))
		for _, port := range ports {
			candidates = append(candidates, fmt.Sprintf("http://127.0.0.1:%d", port))
		}
		return browser.DetectEndpoint(ctx, candidates)
	}
}
