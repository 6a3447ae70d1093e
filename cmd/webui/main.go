package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fota-manager/backend/global"
	"fota-manager/backend/initialize"
	"fota-manager/cmd/webui/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

func main() {
	server := flag.String("server", "http://127.0.0.1:9400", "FOTA manager API address")
	flag.Parse()

	// the TUI owns stdout; diagnostics go to stderr once it exits
	initialize.SetupLogger(os.Stderr, zerolog.WarnLevel)

	p := tea.NewProgram(ui.NewRootModel(*server), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("webui failed")
	}

	if root, ok := final.(ui.RootModel); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := root.Session.Logout(ctx); err != nil {
			global.Logger.Warn().Err(err).Msg("logout")
		}
	}
}
