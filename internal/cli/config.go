package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/simtriage/internal/model"
)

func newConfigCmd(o *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage simtriage configuration",
		Long: `Manage simtriage configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (SIMTRIAGE_*, also read from .env)
3. Config file (~/.simtriage/config.yaml)
4. Defaults`,
	}

	configCmd.AddCommand(newConfigShowCmd(o), newConfigInitCmd())
	return configCmd
}

func newConfigShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the effective configuration after merging defaults, config file, environment variables and flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			if configFile := o.v.ConfigFileUsed(); configFile != "" {
				fmt.Fprintf(stderr, "Configuration file: %s\n\n", configFile)
			} else {
				fmt.Fprintf(stderr, "No configuration file found (using defaults)\n\n")
			}

			// API keys are tagged yaml:"-" and never printed
			yamlData, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("error marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(yamlData)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration file",
		Long:  `Create a default configuration file at ~/.simtriage/config.yaml with all available options.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("error finding home directory: %w", err)
				}
				path = filepath.Join(home, ".simtriage", "config.yaml")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse 'simtriage config show' to view it, or pass --force to overwrite", path)
			}

			if err := writeDefaultConfig(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", path)
			fmt.Fprintf(out, "\nTo view the configuration:\n")
			fmt.Fprintf(out, "  simtriage config show\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "write to this path instead of ~/.simtriage/config.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func writeDefaultConfig(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# simtriage configuration file\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (SIMTRIAGE_*, e.g. SIMTRIAGE_TRIAGE_LIMIT=20)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")
	printf("%s", yamlData)
	printf("\n# analytics.high_risk_threshold: 0 flags any non-zero similarity, a negative value restores the default (40)\n")
	printf("\n# API keys (recommended to use environment variables instead):\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export SIMTRIAGE_LLM_API_KEY=sk-...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	return err
}
