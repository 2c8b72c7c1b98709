package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mindmapapp/mindmap/internal/autosave"
	"github.com/mindmapapp/mindmap/internal/catalog"
	"github.com/mindmapapp/mindmap/internal/config"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/logger"
	"github.com/mindmapapp/mindmap/internal/remote"
	"github.com/mindmapapp/mindmap/internal/session"
	"github.com/mindmapapp/mindmap/internal/snapshot"
)

// app holds the editing context of one invocation.
type app struct {
	log     *logger.Logger
	store   *snapshot.Store
	client  *remote.Client
	session *session.Session
	editor  *autosave.Controller
	catalog *catalog.Catalog

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(cfg *config.ClientConfig, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	log := logger.New(logger.Config{
		Writer:      stderr,
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	if err := os.MkdirAll(cfg.Device.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := snapshot.Open(snapshot.Options{
		Path:           cfg.Device.DataDir,
		MaxRecordBytes: cfg.Device.MaxSnapshotBytes,
		Logger:         log.WithComponent("snapshot").Logger,
	})
	if err != nil {
		return nil, err
	}

	client, err := remote.New(remote.Options{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.RequestTimeout,
		Logger:  log.WithComponent("remote").Logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sess := session.New(store, client, log.WithComponent("session").Logger)
	editor := autosave.New(autosave.Options{
		Store:        store,
		Remote:       client,
		Session:      sess,
		Logger:       log.WithComponent("autosave").Logger,
		UnloadBudget: cfg.Device.UnloadBudget,
	})

	return &app{
		log:     log,
		store:   store,
		client:  client,
		session: sess,
		editor:  editor,
		catalog: catalog.New(client, store, log.WithComponent("catalog").Logger),
		in:      bufio.NewReader(stdin),
		out:     stdout,
		errOut:  stderr,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("failed to close device store", "error", err)
	}
}

// start restores the session and the diagram being edited.
func (a *app) start(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		if !errors.Is(err, session.ErrCorrupt) {
			return err
		}
		a.warn("the saved login could not be read and was cleared")
	}

	report, err := a.editor.LoadOnStartup(ctx)
	if err != nil {
		return err
	}
	if report.Warning != nil {
		a.warn(report.Warning.Error())
	}
	return nil
}

// finish writes unsaved edits to the device. It runs even after an
// interrupt, bounded by the unload budget.
func (a *app) finish(ctx context.Context) {
	res := a.editor.GuardedUnload(context.WithoutCancel(ctx))
	if res.Warning != nil {
		a.warn("your latest changes could not be kept on this device: " + res.Warning.Error())
	}
}

// persist is the autosave after an edit.
func (a *app) persist(ctx context.Context) {
	if err := a.editor.PersistLocal(ctx); err != nil {
		a.warn("could not save on this device: " + err.Error())
	}
}

func (a *app) warn(msg string) {
	fmt.Fprintf(a.errOut, "Warning: %s\n", msg)
}

func (a *app) fail(err error) {
	if errors.Is(err, remote.ErrAuthRequired) {
		fmt.Fprintln(a.errOut, "Please log in: mindmap login <email>")
		return
	}

	fmt.Fprintf(a.errOut, "Error: %s\n", err)
	var de *domainerrors.Error
	if errors.As(err, &de) {
		fields := de.Fields()
		for _, name := range slices.Sorted(maps.Keys(fields)) {
			fmt.Fprintf(a.errOut, "  %s: %s\n", name, fields[name])
		}
	}
}

// readLine reads one line of input without its line ending.
func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ask prints question and reads the answer.
func (a *app) ask(question string) string {
	fmt.Fprint(a.out, question)
	answer, err := a.readLine()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(answer)
}
