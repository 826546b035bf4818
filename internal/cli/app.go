package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/config"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/secrets"
	"github.com/dmitrijs2005/docvault/internal/services"
	"github.com/spf13/viper"
)

var errMismatch = errors.New("entries do not match")

// App carries the state of one CLI invocation.
type App struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  logging.Logger
	session *services.Session
}

func New(in io.Reader, out, errOut io.Writer) *App {
	return &App{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		v:      viper.New(),
		logger: logging.Nop(),
	}
}

// Execute runs the command line args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	if cerr := a.teardown(ctx); err == nil {
		err = cerr
	}
	return err
}

// Report prints the user message for err and logs its full chain.
func (a *App) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	a.logger.Error(ctx, "command failed", "error", err)

	msg := err.Error()
	var usage usageError
	switch {
	case errors.As(err, &usage):
	case errors.Is(err, errMismatch):
		msg = "The entries do not match."
	case common.IsKnown(err):
		msg = common.UserMessage(err)
	}
	fmt.Fprintln(a.errOut, "Error:", msg)
}

// setup loads the configuration and prepares the locked session.
func (a *App) setup(ctx context.Context) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return usageError{err}
	}
	a.cfg = cfg

	logger, err := logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return usageError{err}
	}
	a.logger = logger

	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return err
	}

	sec, err := secrets.New(cfg.SecretBackend, dataDir, secrets.DefaultService)
	if err != nil {
		return err
	}
	kdf, err := cfg.NewKDF()
	if err != nil {
		return err
	}

	a.session = services.NewSession(services.Paths{
		DataDir:        dataDir,
		Database:       cfg.DatabasePath(),
		AttachmentsDir: cfg.AttachmentsPath(),
	}, sec, kdf, logger, services.WithAttachmentOptions(attachments.WithMaxNameAttempts(cfg.MaxNameAttempts)))

	logger.Debug(ctx, "config loaded", "data_dir", dataDir, "secret_backend", cfg.SecretBackend, "kdf", cfg.KDF)
	return nil
}

func (a *App) teardown(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	err := a.session.Close(ctx)
	a.session = nil
	return err
}

// unlock asks for the PIN and opens the vault. A recreated database is
// reported as a warning and the command continues on the empty vault.
func (a *App) unlock(ctx context.Context) (*services.Vault, error) {
	set, err := a.session.IsPinSet(ctx)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, common.ErrPinNotSet
	}

	pin, err := GetSecret(a.in, "PIN", a.errOut)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pin)

	v, err := a.session.Unlock(ctx, pin)
	if errors.Is(err, common.ErrDatabaseRecreated) {
		fmt.Fprintln(a.errOut, "Warning:", common.UserMessage(err))
		return v, nil
	}
	return v, err
}

// usageError marks configuration and argument errors whose own text is
// the best message for the user.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }
