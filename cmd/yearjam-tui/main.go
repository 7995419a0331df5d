// Command yearjam-tui runs the terminal game client against a yearjam
// server. Audio playback requires mpv on PATH.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yearjam/yearjam/internal/api"
	"github.com/yearjam/yearjam/internal/apiclient"
	"github.com/yearjam/yearjam/internal/logging"
	"github.com/yearjam/yearjam/internal/player"
	"github.com/yearjam/yearjam/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		serverURL = flag.String("server", "http://127.0.0.1:3000", "yearjam server URL")
		username  = flag.String("user", "", "username (register/login for the leaderboard)")
		password  = flag.String("pass", "", "password")
		mpvPath   = flag.String("mpv", "mpv", "path to the mpv binary")
		yearStart = flag.Int("start", 1966, "first guessable year")
		yearEnd   = flag.Int("end", 1995, "last guessable year")
		logLevel  = flag.String("log-level", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logFile, err := os.CreateTemp("", "yearjam-tui-*.log")
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	logger, err := logging.Setup(logFile, *logLevel)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	client, err := apiclient.New(*serverURL)
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	ctx := context.Background()

	var user *api.User
	if *username != "" {
		user, err = signIn(ctx, client, *username, *password)
		if err != nil {
			return err
		}
	}

	ctrl := player.New(player.Options{MPVPath: *mpvPath, Logger: logger})
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("starting player (is mpv installed?): %w", err)
	}
	defer ctrl.Close()

	model := tui.NewModel(tui.Options{
		Client:    client,
		Player:    ctrl,
		Logger:    logger,
		YearStart: *yearStart,
		YearEnd:   *yearEnd,
		User:      user,
	})

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// signIn logs in, registering the account first if the credentials are
// unknown.
func signIn(ctx context.Context, client *apiclient.Client, username, password string) (*api.User, error) {
	user, err := client.Login(ctx, username, password)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	user, err = client.Register(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("registering: %w", err)
	}
	return user, nil
}
