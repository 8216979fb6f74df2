// Command chump sends Pushover notifications from the command line.
//
// Credentials come from PUSHOVER_TOKEN and PUSHOVER_USER, optionally loaded from a
// .env file, or from flags:
//
//	chump validate --user uQiRzpo4DXghDmr9QzzfQu27cmVRsG
//	chump send --title "Backup" --sound intermission "Nightly backup finished"
//	chump send --priority emergency --retry 60s --expire 1h --wait "Disk full"
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/karanlyons/chump"
)

type cli struct {
	envFile  string
	token    string
	baseURL  string
	logLevel string

	// transport replaces the default HTTP transport; set by tests.
	transport http.RoundTripper

	cfg Config
	log *slog.Logger
	app *chump.Application
}

func main() {
	if err := newRootCommand(&cli{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "chump",
		Short:             "Send Pushover notifications",
		Version:           chump.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&c.token, "token", "", "application API token (default $PUSHOVER_TOKEN)")
	flags.StringVar(&c.baseURL, "base-url", "", "API base URL (default $PUSHOVER_BASE_URL)")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (default $CHUMP_LOG_LEVEL)")

	root.AddCommand(
		c.validateCommand(),
		c.limitsCommand(),
		c.soundsCommand(),
		c.sendCommand(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(c.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("token") {
		cfg.Token = c.token
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = c.baseURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if err = cfg.validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	c.app = chump.NewApplication(cfg.Token,
		chump.WithBaseURL(cfg.BaseURL),
		chump.WithLogger(c.log),
		chump.WithHttpClient(&http.Client{Timeout: cfg.Timeout, Transport: c.transport}),
	)
	return nil
}
