// cebxctl runs the CEBX engines against the configured storage from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/app"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/clock"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/config"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "dev"
	commit  = "none"

	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the service YAML config",
		Sources: cli.EnvVars(config.EnvConfig),
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite database (overrides the config)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	localeFlag = &cli.StringFlag{
		Name:  "locale",
		Usage: "Locale of recommended actions (ar, en)",
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs",
	}
)

// session is the state shared by the commands of one invocation.
type session struct {
	out    io.Writer
	format string
	clock  clock.Clock
	app    *app.App
}

func main() {
	cmd := newCommand(&session{out: os.Stdout, clock: clock.System{}})
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:    "cebxctl",
		Usage:   "Quote, scan and report against CEBX shipment data",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			configFlag,
			dbFlag,
			formatFlag,
			localeFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			quoteCmd(s),
			scanCmd(s),
			batchScanCmd(s),
			commissionCmd(s),
			reportCmd(s),
			tablesCmd(s),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, s.open(cmd)
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if s.app == nil {
				return nil
			}
			return s.app.Close()
		},
	}
}

func (s *session) open(cmd *cli.Command) error {
	initLogging(cmd.Bool(debugFlag.Name))

	s.format = formatJSON
	if f := cmd.String(formatFlag.Name); f == formatYAML || f == "yml" {
		s.format = formatYAML
	}

	cfg, err := config.Load(cmd.String(configFlag.Name))
	if err != nil {
		return err
	}
	if p := cmd.String(dbFlag.Name); p != "" {
		cfg.Repository.Driver = "sqlite"
		cfg.Repository.SQLitePath = p
	}
	if l := cmd.String(localeFlag.Name); l != "" {
		cfg.Engines.Locale = l
	}
	// Nothing listens to events published from the shell.
	cfg.EventBus.Type = "channel"

	s.app, err = app.New(cfg, s.clock)
	return err
}

func (s *session) encode(v any) error {
	if s.format == formatYAML {
		return yaml.NewEncoder(s.out).Encode(v)
	}
	e := json.NewEncoder(s.out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func initLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(config.NewLogger(domain.LoggingConfig{Level: level.String(), Format: "text"}, os.Stderr))
}
