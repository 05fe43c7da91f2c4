package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/simtriage/internal/logging"
	"github.com/ppiankov/simtriage/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

// options holds the global flags and the viper instance they layer over
type options struct {
	cfgFile     string
	verbose     bool
	logLevel    string
	logFormat   string
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string

	v *viper.Viper
}

// NewRootCmd builds the simtriage command tree
func NewRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "simtriage",
		Short: "simtriage - Similarity report analytics and review triage",
		Long: `simtriage turns a course snapshot of plagiarism-similarity reports into
course analytics, per-student citation patterns, intervention
recommendations and a ranked review worklist.

Similarity is a signal for review, not a finding of misconduct.
Every score is computed from the snapshot and can be traced back to it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.simtriage/config.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (forces debug logging)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text, json")
	pf.BoolVar(&opts.noCache, "no-cache", false, "disable the analysis cache")
	pf.BoolVar(&opts.noFooter, "no-footer", false, "disable footer in Markdown reports")
	pf.BoolVar(&opts.llmEnabled, "llm", false, "enable LLM summary generation")
	pf.StringVar(&opts.llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	pf.StringVar(&opts.llmModel, "llm-model", "", "LLM model name")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newPatternsCmd(opts),
		newInterventionsCmd(opts),
		newTriageCmd(opts),
		newBatchCmd(opts),
		newImportCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Display the version number of simtriage.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simtriage %s\n", Version)
		},
	}
}

// initConfig reads the config file, .env and SIMTRIAGE_* variables, then
// configures logging
func (o *options) initConfig(cmd *cobra.Command) error {
	// .env is optional; existing environment variables win
	_ = godotenv.Load()

	v := o.v
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".simtriage"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// SIMTRIAGE_LOADER_WORKERS overrides loader.workers
	v.SetEnvPrefix("SIMTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, "", reflect.ValueOf(*model.DefaultConfig()))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := o.config()
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.Logging.Format, cmd.ErrOrStderr())
	if used := v.ConfigFileUsed(); used != "" {
		logging.New("cli").Debug("using config file", "path", used)
	}
	return nil
}

// config resolves the effective configuration: flags > env > file > defaults
func (o *options) config() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := o.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if o.verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if o.noCache {
		cfg.Cache.Enabled = false
	}

	if o.llmEnabled {
		cfg.LLM.Provider = o.llmProvider
		if o.llmModel != "" {
			cfg.LLM.Model = o.llmModel
		}
	}
	return cfg, nil
}

// runConfig is config plus the LLM credentials an analysis run needs
func (o *options) runConfig() (*model.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if err := resolveLLM(&cfg.LLM); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveLLM fills provider credentials from the conventional variables
func resolveLLM(cfg *model.LLMConfig) error {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if cfg.Model == "" {
			return fmt.Errorf("ollama requires --llm-model")
		}
	}
	return nil
}

// registerDefaults walks the mapstructure tags of a config struct so that
// every key is known to viper and can be overridden from the environment
func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := val.Field(i)
		if fv.Kind() == reflect.Struct {
			registerDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}
