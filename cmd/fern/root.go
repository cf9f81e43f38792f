package main

import (
	"os"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/config"
)

type commandContext struct {
	configFlag *string

	once      sync.Once
	config    *config.Config
	logger    ectologger.Logger
	syncLog   func()
	configErr error

	// interactive reports whether the user can answer a prompt
	interactive func() bool
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		interactive: isInteractive,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		logger, syncLog, err := newLogger(cfg)
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.logger, c.syncLog = cfg, logger, syncLog
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	if c.syncLog != nil {
		c.syncLog()
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "fern",
		Short:         "Contact book with duplicate detection and merging",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default ./fern.yaml)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newContactsCommand(ctx))

	return rootCmd
}

func isInteractive() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
