package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pilab-dev/reelsync/config"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/tracing"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const AppName = "reelsync"

// errNoActiveUser is returned by commands that act on the signed-in user.
var errNoActiveUser = errors.New("no active user: pass --user or set REELSYNC_USER_KEY")

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	userKey string
	output  string
	trace   bool

	cfg    *config.Config
	logger log.Logger
	tp     *sdktrace.TracerProvider
	out    io.Writer
}

// NewRootCmd builds the command tree. Output goes to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "reelsync keeps favorites and profile in sync between the device and the cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.tp == nil {
				return nil
			}
			return a.tp.Shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		fmt.Sprintf("config file (default is ./%s.yaml or $HOME/.%s/%s.yaml)", AppName, AppName, AppName))
	root.PersistentFlags().StringVarP(&a.userKey, "user", "u", "", "active user key (overrides USER_KEY)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format: table, json or yaml")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "print trace spans to stderr")

	root.AddCommand(
		newServeCmd(a),
		newFavCmd(a),
		newSyncCmd(a),
		newSessionCmd(a),
		newProfileCmd(a),
		newAdminCmd(a),
	)

	return root
}

// Execute runs the CLI against os.Args.
func Execute() error {
	root := NewRootCmd(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		zlog.Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.userKey != "" {
		cfg.UserKey = a.userKey
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	a.logger = log.NewZerologAdapter(level, cfg.LogPretty)

	// Repository packages log through the global logger.
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !cfg.LogPretty}).Level(level)

	if a.trace {
		a.tp, err = tracing.InitTracerProvider(AppName, os.Stderr)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
	}

	a.logger.Debug(ctx, "Configuration loaded", log.Fields{
		"local_path":     cfg.LocalPath,
		"remote_backend": cfg.RemoteBackend,
		"redis":          cfg.RedisAddr != "",
		"user_key":       cfg.UserKey,
	})

	return nil
}

// withEngine opens the engine, runs fn and closes the engine.
func (a *app) withEngine(ctx context.Context, fn func(*engine) error) error {
	eng, err := openEngine(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	runErr := fn(eng)
	closeErr := eng.Close(context.WithoutCancel(ctx))

	return errors.Join(runErr, closeErr)
}

// activeUser returns the configured user key or errNoActiveUser.
func (e *engine) activeUser() (string, error) {
	key := e.session.UserKey()
	if key == "" {
		return "", errNoActiveUser
	}
	return key, nil
}
