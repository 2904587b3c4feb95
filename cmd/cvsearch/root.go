package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/config"
	applog "alfredoptarigan/cv-search/internal/logger"
)

const (
	app = "cvsearch"

	outputText = "text"
	outputJSON = "json"
)

type cliConfig struct {
	APIURL    string `mapstructure:"api-url"`
	BaseURL   string `mapstructure:"base-url"`
	TimeoutMS int    `mapstructure:"timeout-ms"`
	Output    string `mapstructure:"output"`
	Debug     bool   `mapstructure:"debug"`
	LogJSON   bool   `mapstructure:"log-json"`
}

// cli carries state shared by every subcommand. Each root command gets its
// own viper instance.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     cliConfig
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           app,
		Short:         "cvsearch searches and uploads candidate CVs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default is cvsearch.yaml in the current directory, if present)")
	pf.String("api-url", "http://127.0.0.1:3000", "origin serving the /api proxy routes")
	pf.String("base-url", config.DefaultBaseURL, "backend origin used for candidate details and PDF links")
	pf.Int("timeout-ms", config.DefaultTimeoutMS, "request timeout in milliseconds")
	pf.StringP("output", "o", outputText, "output format: text or json")
	pf.BoolP("debug", "d", false, "verbose/debug logging")
	pf.Bool("log-json", false, "json format for logging")

	for _, name := range []string{"api-url", "base-url", "timeout-ms", "output", "debug", "log-json"} {
		_ = c.v.BindPFlag(name, pf.Lookup(name))
	}
	_ = c.v.BindEnv("api-url", "NEXT_PUBLIC_API_BASE_URL")
	_ = c.v.BindEnv("base-url", "NEXT_PUBLIC_BASE_URL")
	_ = c.v.BindEnv("timeout-ms", "NEXT_PUBLIC_API_TIMEOUT")

	root.AddCommand(
		newSearchCmd(c),
		newGetCmd(c),
		newUploadCmd(c),
		newIngestCmd(c),
		newHealthCmd(c),
	)
	return root
}

func (c *cli) load() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigName(app)
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := c.v.Unmarshal(&c.cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if c.cfg.TimeoutMS <= 0 {
		c.cfg.TimeoutMS = config.DefaultTimeoutMS
	}
	if c.cfg.Output != outputText && c.cfg.Output != outputJSON {
		return fmt.Errorf("unknown output format %q", c.cfg.Output)
	}

	level := "warn"
	if c.cfg.Debug {
		level = "debug"
	}
	log, err := applog.New(c.cfg.LogJSON, level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	c.log = log.Named(app)
	return nil
}

func (c *cli) timeout() time.Duration {
	return time.Duration(c.cfg.TimeoutMS) * time.Millisecond
}

func (c *cli) api() *client.CandidateAPI {
	return client.NewCandidateAPI(c.cfg.APIURL, c.cfg.BaseURL, c.timeout(), nil, c.log)
}

func (c *cli) rest() *client.REST {
	return client.NewREST(c.cfg.APIURL, c.timeout(), nil)
}

func (c *cli) jsonOutput() bool {
	return c.cfg.Output == outputJSON
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}
