package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productmd/internal/app"
	"productmd/internal/types"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "PRODUCTMD"

type RootConfig struct {
	ConfigFile     string
	LogLevel       string
	ZeroCopy       bool
	HTTPRetries    int
	HTTPTimeoutSec int
}

// newAppService is replaced in tests.
var newAppService = func() app.Service {
	return app.NewServiceWithConfig(loadConfig())
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "productmd",
		Short:         "Read, validate and convert compose metadata",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.BoolVar(&cfg.ZeroCopy, "zero-copy", false, "Share decoded strings with the source tree")
	flags.IntVar(&cfg.HTTPRetries, "http-retries", 3, "Retries for http(s) sources")
	flags.IntVar(&cfg.HTTPTimeoutSec, "http-timeout", 60, "Timeout in seconds for http(s) sources")
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("zero_copy", flags.Lookup("zero-copy"))
	_ = viper.BindPFlag("http_retries", flags.Lookup("http-retries"))
	_ = viper.BindPFlag("http_timeout_sec", flags.Lookup("http-timeout"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newConvertCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newVerifyCommand())
	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newComposeIDCommand())
	cmd.AddCommand(newReleaseIDCommand())
	return cmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("productmd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/productmd")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func loadConfig() types.Config {
	return types.Config{
		LogLevel:       viper.GetString("log_level"),
		OutputVersion:  viper.GetString("output_version"),
		Encoding:       types.Encoding(viper.GetString("encoding")),
		ZeroCopy:       viper.GetBool("zero_copy"),
		HTTPRetries:    viper.GetInt("http_retries"),
		HTTPTimeoutSec: viper.GetInt("http_timeout_sec"),
	}
}

// setupLogging writes to stderr so command output on stdout stays clean.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}
