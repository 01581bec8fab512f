package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agentx-labs/compkg/internal/branding"
	"github.com/agentx-labs/compkg/internal/config"
	"github.com/agentx-labs/compkg/internal/fetch"
	"github.com/agentx-labs/compkg/internal/installer"
	"github.com/agentx-labs/compkg/internal/logging"
	"github.com/agentx-labs/compkg/internal/telemetry"
	"github.com/agentx-labs/compkg/internal/userdata"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	flagConfig   string
	flagDir      string
	flagLogLevel string
	flagTrace    string
)

// session is the state shared by the commands of one invocation.
type session struct {
	cfg        *config.Config
	configPath string
	projectDir string
	logger     *zap.Logger
	tracing    *telemetry.Provider
}

var sess *session

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs agents, skills, plugins, and profiles from HTTP registries
into a project, recording what was installed in a lock file so that installs
are reproducible and local edits are never silently overwritten.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		sess = s
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeSession()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/"+branding.HomeDir()+"/config.yaml)")
	pf.StringVarP(&flagDir, "dir", "C", "", "Project directory (default: current directory)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
	pf.StringVar(&flagTrace, "trace", "", "Trace exporter: none or stdout")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeSession(); err == nil {
		err = cerr
	}
	return err
}

func newSession(cmd *cobra.Command) (*session, error) {
	dir := flagDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	configPath := flagConfig
	if configPath == "" {
		configPath = config.FilePath()
	}
	cfg, err := config.Load(config.Options{File: configPath, ProjectDir: dir})
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	exporter := cfg.Trace.Exporter
	if flagTrace != "" {
		exporter = flagTrace
	}
	tp, err := telemetry.NewProvider(telemetry.Config{
		Exporter:    exporter,
		ServiceName: branding.CLIName(),
		Writer:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.String("project", dir),
		zap.Strings("registries", cfg.Namespaces()))

	return &session{cfg: cfg, configPath: configPath, projectDir: dir, logger: logger, tracing: tp}, nil
}

func closeSession() error {
	if sess == nil {
		return nil
	}
	s := sess
	sess = nil
	_ = s.logger.Sync()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracing.Shutdown(ctx); err != nil {
		return fmt.Errorf("flushing traces: %w", err)
	}
	return nil
}

// fetcher builds a fetch client carrying each registry's configured headers.
func (s *session) fetcher() *fetch.Client {
	opts := []fetch.Option{
		fetch.WithLogger(s.logger),
		fetch.WithUserAgent(branding.CLIName() + "/" + buildVersion),
	}
	for _, ns := range s.cfg.Namespaces() {
		reg := s.cfg.Registries[ns]
		if len(reg.Headers) > 0 {
			opts = append(opts, fetch.WithHeaders(reg.URL, reg.Headers))
		}
	}
	return fetch.New(opts...)
}

func (s *session) layout() userdata.Layout {
	return userdata.NewLayout(s.projectDir, s.cfg)
}

func (s *session) installer() *installer.Installer {
	return installer.New(s.fetcher(), s.layout(), s.cfg.Registries, installer.WithLogger(s.logger))
}
