package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dunamismax/logocrunch/internal/config"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *[]string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		if err := config.LoadEnvFiles(*c.envFileFlag...); err != nil {
			c.configErr = err
			return
		}
		cfg, err := config.LoadFile(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "[logocrunch] ", log.LstdFlags|log.Lmsgprefix)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFiles []string

	ctx := &commandContext{configFlag: &configFlag, envFileFlag: &envFiles}

	rootCmd := &cobra.Command{
		Use:           "logocrunch",
		Short:         "Turn logo rasters into compact, centered SVG documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "KEY=VALUE files loaded before reading the environment")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newEnqueueCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))

	return rootCmd
}
