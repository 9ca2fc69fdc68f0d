package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/config"
	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/exports"
	"codeberg.org/cvforge/server/internal/identity"
	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/tui"
	"codeberg.org/cvforge/server/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running cvforge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadClientConfig()

	// the alt screen owns the terminal, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()

		logOut = f
	}

	logger.SetDefault(logger.New(cfg.Environment, os.Getenv("LOG_LEVEL"), logOut))

	tokenPath, err := identity.DefaultPath()
	if err != nil {
		return err
	}

	holder, err := identity.Load(tokenPath)
	if err != nil {
		return err
	}

	if cfg.Token != "" {
		holder.Use(cfg.Token)
	}

	counterPath, err := exports.DefaultPath()
	if err != nil {
		return err
	}

	exportCounter, err := exports.Open(counterPath)
	if err != nil {
		return err
	}

	client := apiclient.New(cfg.Endpoint, holder)
	cache := credits.New(client, holder)

	var p *tea.Program

	wf := workflow.New(workflow.Config{
		Identity:  holder,
		Quota:     client,
		Generator: client,
		Cache:     cache,
		SignIn: workflow.SignInFunc(func() {
			p.Send(tui.SignInRequestedMsg{})
		}),
	})

	app := tui.NewApp(tui.Deps{
		Mode:      cfg.Environment,
		Client:    client,
		Identity:  holder,
		Cache:     cache,
		Workflow:  wf,
		Exports:   exportCounter,
		ExportDir: cfg.ExportDir,
	})

	p = tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unsubscribe := cache.Subscribe(func(s credits.State) {
		p.Send(tui.CreditsMsg(s))
	})
	defer unsubscribe()

	go cache.Start(ctx)
	defer cache.Close()

	go tui.WatchCredits(ctx, client, holder, cache)

	logger.Info("cvforge started", "endpoint", cfg.Endpoint, "signed_in", holder.Present())

	if _, err := p.Run(); err != nil {
		return err
	}

	return nil
}
