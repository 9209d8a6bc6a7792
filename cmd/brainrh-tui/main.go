package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/brainrh/tui/internal/app"
	"github.com/brainrh/tui/internal/client"
	"github.com/brainrh/tui/internal/config"
	"github.com/brainrh/tui/internal/stream"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	apiURL := flag.String("api", "", "Base URL of the BrainRH backend (overrides config)")
	token := flag.String("token", "", "Auth token (if the backend requires it)")
	cfgPath := flag.String("config", defaultConfigPath(), "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *token != "" {
		cfg.API.Token = *token
	}

	httpClient := client.NewHTTPClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout)
	registry := stream.NewRegistry()
	// Global teardown: whatever path the program exits through, no stream
	// outlives it.
	defer registry.CloseAll()

	m := app.New(cfg, httpClient, registry)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "brainrh.yaml"
	}
	return home + "/.config/brainrh/tui.yaml"
}
