// Package autosave reconciles the document being edited with the device
// snapshot and the remote diagram service.
//
// The Controller owns the in-memory Document. It tracks the last persisted
// copy (the baseline) to decide whether there are unsaved changes, writes the
// device snapshot when the document diverges, and mediates navigation and
// teardown so that edits are never lost to a failed remote call. Decisions
// about what to persist come from the pure Transition function; the
// Controller only performs the commands it returns.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/mindmapapp/mindmap/internal/diagram"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/id"
	"github.com/mindmapapp/mindmap/internal/remote"
	"github.com/mindmapapp/mindmap/internal/session"
	"github.com/mindmapapp/mindmap/internal/snapshot"
	"github.com/mindmapapp/mindmap/internal/validation"
)

const (
	defaultUnloadBudget = 2 * time.Second
	untitledPrefix      = "Diagrama sin guardar - "
	untitledLayout      = "02/01/2006, 15:04:05"
)

var (
	// ErrTitleRequired is returned by SaveRemote for a blank title.
	ErrTitleRequired = domainerrors.Validation("title is required")
	// ErrTitleInvalid is returned by SaveRemote for an over-long title.
	ErrTitleInvalid = domainerrors.Validation("Title must be between 1 and 255 characters")
	// ErrLoginRequired is returned by SaveRemote without an authenticated session.
	ErrLoginRequired = domainerrors.Validation("you must be logged in to save diagrams")
	// ErrSaveInProgress is returned when a remote save is already in flight.
	ErrSaveInProgress = domainerrors.Conflict("a save is already in progress")
	// ErrRemoteBackingLost reports that the server no longer has the diagram.
	// The edit is kept locally and the next save creates a new record.
	ErrRemoteBackingLost = domainerrors.Conflict("the diagram no longer exists on the server; the next save will create a new copy")
	// ErrClosed is returned once the controller navigated away.
	ErrClosed = errors.New("autosave: editor closed")
)

// LocalStore is the device snapshot. *snapshot.Store implements it.
type LocalStore interface {
	Current(ctx context.Context) (*snapshot.Record, error)
	SaveCurrent(ctx context.Context, rec *snapshot.Record) error
	ClearCurrent(ctx context.Context) error
	Modified(ctx context.Context, id int64) (*snapshot.Record, error)
	PutModified(ctx context.Context, rec *snapshot.Record) error
	DeleteModified(ctx context.Context, id int64) error
}

// Remote is the diagram service. *remote.Client implements it.
type Remote interface {
	GetDiagram(ctx context.Context, id int64) (*remote.Diagram, error)
	CreateDiagram(ctx context.Context, titulo, datosJSON string) (*remote.SavedDiagram, error)
	UpdateDiagram(ctx context.Context, id int64, titulo, datosJSON string) (*remote.SavedDiagram, error)
}

// Session supplies the identity diagrams are saved under. *session.Session implements it.
type Session interface {
	Current() (session.User, bool)
	Logout(ctx context.Context) error
}

// Options configures New.
type Options struct {
	Store   LocalStore
	Remote  Remote
	Session Session
	Logger  *slog.Logger
	// IDs hands out node ids. Defaults to a clock-seeded sequence.
	IDs *id.Sequence
	// Rand places new nodes. Defaults to an unseeded source.
	Rand *rand.Rand
	// Now defaults to time.Now.
	Now func() time.Time
	// UnloadBudget bounds the local write made by GuardedUnload.
	UnloadBudget time.Duration
}

// Controller is the autosave controller for one editing context.
type Controller struct {
	store        LocalStore
	remote       Remote
	session      Session
	logger       *slog.Logger
	ids          *id.Sequence
	rnd          *rand.Rand
	now          func() time.Time
	unloadBudget time.Duration

	mu        sync.Mutex
	doc       diagram.Document
	baseline  *diagram.Document
	state     State
	hasLocal  bool
	remoteID  int64
	title     string
	createdAt time.Time
	saving    bool
	closed    bool

	// titleChanged marks a retitle not yet written to the device snapshot.
	titleChanged bool
}

// New creates a controller holding the default document. Call LoadOnStartup
// before editing.
func New(opts Options) *Controller {
	c := &Controller{
		store:        opts.Store,
		remote:       opts.Remote,
		session:      opts.Session,
		logger:       opts.Logger,
		ids:          opts.IDs,
		rnd:          opts.Rand,
		now:          opts.Now,
		unloadBudget: opts.UnloadBudget,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.ids == nil {
		c.ids = id.NewSequence(0)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.unloadBudget <= 0 {
		c.unloadBudget = defaultUnloadBudget
	}
	c.startFresh()
	return c
}

// Document returns a copy of the document being edited.
func (c *Controller) Document() diagram.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Dirty reports whether the document has changes not yet persisted anywhere.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return IsDirty(c.doc, c.baseline)
}

// State returns the persistence status.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RemoteID returns the remote identifier, zero when the document was never saved remotely.
func (c *Controller) RemoteID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteID
}

// Title returns the working title.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// SetTitle changes the working title. Titles are metadata and do not make
// the document dirty, but the next PersistLocal writes them.
func (c *Controller) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	title = strings.TrimSpace(title)
	if title != c.title {
		c.title = title
		c.titleChanged = true
	}
}

// Saving reports whether a remote save is in flight.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// Edit applies fn to a working copy of the document and commits the copy
// only if fn succeeds.
func (c *Controller) Edit(fn func(e *diagram.Editor) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	work := c.doc.Clone()
	if err := fn(diagram.NewEditor(&work, c.ids, c.rnd)); err != nil {
		return err
	}
	c.doc = work
	return nil
}

// AddNode adds a label node. A blank label gets the default "Nodo N".
func (c *Controller) AddNode(label string) (diagram.Node, error) {
	var n diagram.Node
	err := c.Edit(func(e *diagram.Editor) (err error) {
		n, err = e.AddNode(label)
		return err
	})
	return n, err
}

// AddImageNode adds an image node showing url.
func (c *Controller) AddImageNode(label, url string) (diagram.Node, error) {
	var n diagram.Node
	err := c.Edit(func(e *diagram.Editor) (err error) {
		n, err = e.AddImageNode(label, url)
		return err
	})
	return n, err
}

// SetNodeImage turns node id into an image node.
func (c *Controller) SetNodeImage(id, url string) error {
	return c.Edit(func(e *diagram.Editor) error { return e.Doc.SetNodeImage(id, url) })
}

// RelabelNode changes a node's label.
func (c *Controller) RelabelNode(id, label string) error {
	return c.Edit(func(e *diagram.Editor) error { return e.Doc.RelabelNode(id, label) })
}

// RelabelEdge sets or clears an edge's label.
func (c *Controller) RelabelEdge(id, label string) error {
	return c.Edit(func(e *diagram.Editor) error { return e.Doc.RelabelEdge(id, label) })
}

// MoveNode drags a node to pos.
func (c *Controller) MoveNode(id string, pos diagram.Position) error {
	return c.Edit(func(e *diagram.Editor) error { return e.Doc.MoveNode(id, pos) })
}

// Connect adds an edge from source to target.
func (c *Controller) Connect(source, target string) (diagram.Edge, error) {
	var edge diagram.Edge
	err := c.Edit(func(e *diagram.Editor) (err error) {
		edge, err = e.Doc.Connect(source, target)
		return err
	})
	return edge, err
}

// DeleteNode removes a node and its edges, returning how many edges went with it.
func (c *Controller) DeleteNode(id string) (int, error) {
	var removed int
	err := c.Edit(func(e *diagram.Editor) (err error) {
		removed, err = e.Doc.DeleteNode(id)
		return err
	})
	return removed, err
}

// DeleteEdge removes one edge.
func (c *Controller) DeleteEdge(id string) error {
	return c.Edit(func(e *diagram.Editor) error { return e.Doc.DeleteEdge(id) })
}

// Replace swaps the whole document, as an import does.
func (c *Controller) Replace(doc diagram.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return c.Edit(func(e *diagram.Editor) error {
		*e.Doc = doc.Clone()
		return nil
	})
}

// LoadReport describes what LoadOnStartup restored.
type LoadReport struct {
	// Restored is set when a device snapshot was found and decoded.
	Restored bool
	// RemoteRefreshed is set when the server copy became the baseline.
	RemoteRefreshed bool
	// Warning is a recoverable problem the user should hear about.
	Warning error
}

// LoadOnStartup restores the document from the device snapshot, refreshing
// title and baseline from the server when the snapshot is remotely backed.
// Without a snapshot the default graph is loaded and counts as saved.
// Failures to reach the server or read the snapshot are reported in the
// LoadReport, never as an error.
func (c *Controller) LoadOnStartup(ctx context.Context) (LoadReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startFresh()

	rec, err := c.store.Current(ctx)
	if errors.Is(err, snapshot.ErrNotFound) {
		return LoadReport{}, nil
	}
	if err == nil {
		var doc diagram.Document
		if doc, err = diagram.DecodeString(rec.DatosJSON); err == nil {
			return c.restore(ctx, rec, doc), nil
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return LoadReport{}, ctxErr
	}

	// Unreadable snapshot: start from the default graph, unsaved.
	c.logger.Warn("could not restore local snapshot", "error", err)
	c.baseline = nil
	return LoadReport{Warning: domainerrors.Wrap(err, domainerrors.CodeInternal, "the locally saved diagram could not be read")}, nil
}

func (c *Controller) restore(ctx context.Context, rec *snapshot.Record, doc diagram.Document) LoadReport {
	c.doc = doc
	base := doc.Clone()
	c.baseline = &base
	c.hasLocal = true
	c.title = rec.Titulo
	c.createdAt = rec.FechaCreacion

	report := LoadReport{Restored: true}
	if !rec.RemoteBacked() {
		c.state = LocalOnly
		return report
	}

	c.remoteID = rec.ID
	_, pendingErr := c.store.Modified(ctx, rec.ID)
	c.state = initialState(true, true, pendingErr == nil)

	log := c.logger.With("diagram_id", rec.ID)

	if _, ok := c.session.Current(); !ok {
		report.Warning = domainerrors.Unauthorized("not logged in; showing the local copy")
		return report
	}

	fresh, err := c.remote.GetDiagram(ctx, rec.ID)
	switch {
	case err == nil:
		c.title = fresh.Titulo
		if !fresh.FechaCreacion.IsZero() {
			c.createdAt = fresh.FechaCreacion
		}
		if remoteDoc, derr := diagram.DecodeString(fresh.DatosJSON); derr == nil {
			c.baseline = &remoteDoc
		} else {
			log.Warn("server copy is unreadable, keeping local baseline", "error", derr)
		}
		c.state = initialState(true, true, IsDirty(c.doc, c.baseline))
		report.RemoteRefreshed = true

	case errors.Is(err, remote.ErrNotFound):
		log.Warn("diagram no longer exists on the server, continuing with local copy")
		c.loseRemote(ctx)
		report.Warning = ErrRemoteBackingLost

	default:
		log.Warn("could not refresh diagram from server, continuing with local copy", "error", err)
		report.Warning = err
	}
	return report
}

// PersistLocal writes the document to the device snapshot and, when remotely
// backed, to the locally-modified side table. It is a no-op when nothing
// changed since the last persist. On failure, including a full device store,
// the in-memory document is untouched and the error is returned as a warning.
func (c *Controller) PersistLocal(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocal(ctx)
}

func (c *Controller) persistLocal(ctx context.Context) error {
	if c.hasLocal && !c.titleChanged && !IsDirty(c.doc, c.baseline) {
		return nil
	}

	next, cmds, err := Transition(c.state, EventPersistLocal)
	if err != nil {
		return err
	}

	source := snapshot.SourceUnsaved
	if c.remoteID != 0 {
		source = snapshot.SourceModified
	}
	rec, err := c.record(source)
	if err != nil {
		return err
	}

	if err := c.run(ctx, cmds, c.remoteID, rec); err != nil {
		c.logger.Warn("local save failed", "error", err, "code", domainerrors.CodeOf(err))
		return err
	}

	c.state = next
	c.hasLocal = true
	c.titleChanged = false
	base := c.doc.Clone()
	c.baseline = &base
	return nil
}

// SaveRemote stores the document on the server under title: a create when the
// document has no remote identity, an update otherwise. Validation runs before
// any network call. Only one save may be in flight.
//
// On success the baseline moves to the saved content. On failure the dirty
// state is unchanged and the server's message is returned. An update the
// server answers with 404 drops the remote identity, keeps the edit locally
// and returns ErrRemoteBackingLost.
func (c *Controller) SaveRemote(ctx context.Context, title string) (*remote.SavedDiagram, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if !validation.ValidTitle(title) {
		return nil, ErrTitleInvalid
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := c.session.Current(); !ok {
		c.mu.Unlock()
		return nil, ErrLoginRequired
	}
	if c.saving {
		c.mu.Unlock()
		return nil, ErrSaveInProgress
	}

	_, cmds, err := Transition(c.state, EventSaveRequested)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	sent := c.doc.Clone()
	payload, err := diagram.EncodeString(sent)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	remoteID := c.remoteID
	c.saving = true
	c.mu.Unlock()

	var saved *remote.SavedDiagram
	switch cmds[0] {
	case CreateRemote:
		saved, err = c.remote.CreateDiagram(ctx, title, payload)
	case UpdateRemote:
		saved, err = c.remote.UpdateDiagram(ctx, remoteID, title, payload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false

	if err != nil {
		if cmds[0] == UpdateRemote && errors.Is(err, remote.ErrNotFound) {
			c.loseRemote(ctx)
			return nil, ErrRemoteBackingLost.WithCause(err)
		}
		c.logger.Warn("remote save failed", "error", err, "diagram_id", remoteID)
		return nil, err
	}

	next, after, err := Transition(c.state, EventRemoteSaved)
	if err != nil {
		return nil, err
	}
	c.state = next
	c.remoteID = saved.ID
	c.title = title
	c.titleChanged = false
	if !saved.FechaCreacion.IsZero() {
		c.createdAt = saved.FechaCreacion
	}
	c.baseline = &sent

	rec, err := c.record(snapshot.SourceRemote)
	if err == nil {
		err = c.run(ctx, after, saved.ID, rec)
	}
	if err != nil {
		// The server has the diagram; the device copy will be rewritten on the next persist.
		c.logger.Warn("could not refresh local snapshot after remote save", "error", err)
	} else {
		c.hasLocal = true
	}

	// Edits made while the request was in flight are still pending.
	if IsDirty(c.doc, c.baseline) {
		if err := c.persistLocal(ctx); err != nil {
			c.logger.Warn("could not persist edits made during save", "error", err)
		}
	}

	c.logger.Info("diagram saved", "diagram_id", saved.ID, "created", cmds[0] == CreateRemote)
	return saved, nil
}

// MarkRemoteDeleted drops the remote identity when id is the diagram being
// edited, so the next save creates a new record. It reports whether it applied.
func (c *Controller) MarkRemoteDeleted(ctx context.Context, id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == 0 || id != c.remoteID {
		return false
	}
	c.loseRemote(ctx)
	return true
}

// loseRemote applies EventRemoteLost. The caller holds c.mu.
func (c *Controller) loseRemote(ctx context.Context) {
	next, cmds, err := Transition(c.state, EventRemoteLost)
	if err != nil {
		return
	}
	lost := c.remoteID
	c.state = next
	c.remoteID = 0

	rec, err := c.record(snapshot.SourceUnsaved)
	if err == nil {
		err = c.run(ctx, cmds, lost, rec)
	}
	if err != nil {
		c.logger.Warn("could not record loss of remote backing", "diagram_id", lost, "error", err)
		return
	}
	c.hasLocal = true
}

// Choice is the user's answer to the unsaved-changes prompt.
type Choice int

const (
	// ChoiceCancel stays on the editor.
	ChoiceCancel Choice = iota
	// ChoiceSave saves, then navigates even if the remote save fails.
	ChoiceSave
	// ChoiceDiscard navigates without saving.
	ChoiceDiscard
)

// NavigateResult describes a guarded navigation.
type NavigateResult struct {
	Destination string
	Navigated   bool
	// SavedRemote is set when the save choice reached the server.
	SavedRemote bool
	// Warning reports a save that did not fully succeed. Navigation happened anyway.
	Warning error
}

// GuardedNavigate leaves the editor for destination. With unsaved changes,
// prompt decides: save first, discard, or stay. A failed save never blocks
// the navigation; the edit is kept in the device snapshot and the warning
// says the server copy is stale.
func (c *Controller) GuardedNavigate(ctx context.Context, destination string, prompt func() Choice) (NavigateResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NavigateResult{}, ErrClosed
	}
	dirty := IsDirty(c.doc, c.baseline)
	title := c.title
	c.mu.Unlock()

	res := NavigateResult{Destination: destination}
	if dirty {
		switch prompt() {
		case ChoiceCancel:
			return res, nil
		case ChoiceSave:
			res.Warning = c.saveBeforeLeaving(ctx, title, &res)
		case ChoiceDiscard:
		}
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	res.Navigated = true
	return res, nil
}

func (c *Controller) saveBeforeLeaving(ctx context.Context, title string, res *NavigateResult) error {
	if err := c.PersistLocal(ctx); err != nil {
		return err
	}
	if _, err := c.SaveRemote(ctx, title); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeOf(err), "changes were kept on this device but the server copy is stale")
	}
	res.SavedRemote = true
	return nil
}

// UnloadResult describes a guarded teardown.
type UnloadResult struct {
	// Confirm asks the host to confirm leaving with unsaved changes.
	Confirm bool
	// Warning reports a failed local write.
	Warning error
}

// GuardedUnload runs at teardown. With unsaved changes it writes the device
// snapshot within the unload budget and asks for confirmation. No network
// call is made.
func (c *Controller) GuardedUnload(ctx context.Context) UnloadResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !IsDirty(c.doc, c.baseline) {
		return UnloadResult{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.unloadBudget)
	defer cancel()

	return UnloadResult{Confirm: true, Warning: c.persistLocal(ctx)}
}

// Logout persists pending edits, ends the session, and resets the editor to
// the default graph with no device snapshot.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if IsDirty(c.doc, c.baseline) {
		if err := c.persistLocal(ctx); err != nil {
			c.logger.Warn("could not persist before logout", "error", err)
		}
	}

	if err := c.session.Logout(ctx); err != nil {
		c.logger.Warn("logout failed", "error", err)
	}

	_, cmds, err := Transition(c.state, EventReset)
	if err != nil {
		return err
	}
	if err := c.run(ctx, cmds, 0, nil); err != nil {
		return err
	}
	c.startFresh()
	return nil
}

// startFresh loads the default graph and marks it as saved. The caller holds c.mu
// or has exclusive access.
func (c *Controller) startFresh() {
	c.doc = diagram.Default()
	base := c.doc.Clone()
	c.baseline = &base
	c.state = Unsaved
	c.hasLocal = false
	c.remoteID = 0
	c.title = ""
	c.titleChanged = false
	c.createdAt = time.Time{}
}

// record snapshots the document and its metadata. The caller holds c.mu.
func (c *Controller) record(source snapshot.Source) (*snapshot.Record, error) {
	payload, err := diagram.EncodeString(c.doc)
	if err != nil {
		return nil, err
	}

	now := c.now()
	if c.createdAt.IsZero() {
		c.createdAt = now.UTC()
	}
	title := c.title
	if title == "" {
		title = untitledPrefix + now.Format(untitledLayout)
	}

	rec := &snapshot.Record{
		ID:            c.remoteID,
		Titulo:        title,
		DatosJSON:     payload,
		FechaCreacion: c.createdAt,
		Source:        source,
	}
	if user, ok := c.session.Current(); ok {
		rec.UsuarioID = user.ID
	}
	return rec, nil
}

// run performs the local commands of a transition in order. id keys the side table.
func (c *Controller) run(ctx context.Context, cmds []Command, id int64, rec *snapshot.Record) error {
	for _, cmd := range cmds {
		var err error
		switch cmd {
		case WriteLocal:
			err = c.store.SaveCurrent(ctx, rec)
		case WriteModified:
			modified := *rec
			modified.ID = id
			err = c.store.PutModified(ctx, &modified)
		case ClearModified:
			err = c.store.DeleteModified(ctx, id)
		case ClearLocal:
			err = c.store.ClearCurrent(ctx)
		default:
			err = errors.New("autosave: " + cmd.String() + " is not a local command")
		}
		if err != nil {
			return err
		}
	}
	return nil
}
