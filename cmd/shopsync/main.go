package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/shopsync/internal/config"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/frappe"
	"github.com/mmcdole/shopsync/internal/importer"
	"github.com/mmcdole/shopsync/internal/log"
	"github.com/mmcdole/shopsync/internal/store"
	"github.com/mmcdole/shopsync/internal/tui"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func main() {
	var showVersion bool
	var configPath string
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if showVersion {
		fmt.Printf("shopsync %s\n", Version)
		return
	}

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := log.SetupLogger(&cfg.Logging, "app", "shopsync", "version", Version)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting shopsync")

	if !cfg.IsConfigured() {
		return runSetupFlow(loader, cfg, logger)
	}

	client := frappe.NewClient(cfg.Server.URL, cfg.Server.APIKey, cfg.Server.APISecret, frappe.Options{
		MethodPrefix:      cfg.Integration.MethodPrefix,
		Timeout:           cfg.Client.Timeout,
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
		Burst:             cfg.Client.Burst,
	}, logger)
	realtime := frappe.NewRealtime(cfg.RealtimeURL(), cfg.Realtime.Namespace, cfg.Server.APIKey, cfg.Server.APISecret, logger)

	var runs domain.RunStore
	if cfg.History.Enabled {
		runStore, err := store.NewRunStore(config.DefaultDataPath(), cfg.Server.URL, cfg.History.Limit)
		if err != nil {
			// The browser works without an archive
			logger.Warn("run archive unavailable", "error", err)
		} else {
			defer runStore.Close()
			runs = runStore
		}
	}

	svc := importer.NewService(client, realtime, runs, importer.Integration{
		Name:    cfg.Integration.Name,
		JobName: cfg.Integration.JobName,
		Event:   cfg.Integration.Event,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewModel(ctx, svc, tui.Options{
		Title:        cfg.Integration.Title,
		RemoteLabel:  cfg.Integration.RemoteLabel,
		LocalLabel:   cfg.Integration.LocalLabel,
		HistoryLimit: cfg.History.Limit,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI", "site", cfg.Server.URL, "integration", cfg.Integration.Name)

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow asks for the site URL and API credentials and saves them
func runSetupFlow(loader *config.Loader, cfg *config.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to shopsync!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	var siteURL string
	for {
		fmt.Print("Enter your site URL (e.g., https://erp.example.com): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		siteURL = strings.TrimRight(strings.TrimSpace(input), "/")

		if siteURL == "" {
			fmt.Println("Site URL cannot be empty. Please try again.")
			continue
		}

		fmt.Println()
		probe := frappe.NewClient(siteURL, "", "", frappe.Options{Timeout: cfg.Client.Timeout}, logger)
		if err := pingWithSpinner(probe); err != nil {
			if frappe.IsRemoteError(err) {
				fmt.Printf("\n✗ Site answered with an error: %v\n", err)
			} else {
				fmt.Printf("\n✗ Could not reach site: %v\n", err)
			}
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			continue
		}
		break
	}

	fmt.Print("API key: ")
	input, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	apiKey := strings.TrimSpace(input)

	fmt.Print("API secret: ")
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	apiSecret := strings.TrimSpace(string(secretBytes))

	if apiKey == "" || apiSecret == "" {
		return fmt.Errorf("API key and secret are required")
	}

	client := frappe.NewClient(siteURL, apiKey, apiSecret, frappe.Options{Timeout: cfg.Client.Timeout}, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.LoggedUser(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("✓ Authenticated as %s\n", user)

	cfg.Server.URL = siteURL
	cfg.Server.APIKey = apiKey
	cfg.Server.APISecret = apiSecret

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run shopsync again to start the application.")

	return nil
}

// pingWithSpinner probes the site with a visual spinner
func pingWithSpinner(client *frappe.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- client.Ping(ctx)
	}()

	frame := 0
	fmt.Printf("\r%s Contacting site...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Println("✓ Frappe site found")
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Contacting site...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("site did not answer in time")
		}
	}
}
