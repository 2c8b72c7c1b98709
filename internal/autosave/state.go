package autosave

import "fmt"

// State is the persistence status of the document being edited.
type State int

const (
	// Unsaved: never written anywhere.
	Unsaved State = iota
	// LocalOnly: written to the device, no remote identity.
	LocalOnly
	// RemoteClean: remotely backed and reconciled with the server.
	RemoteClean
	// RemoteDirty: remotely backed with local edits the server has not seen.
	RemoteDirty
)

func (s State) String() string {
	switch s {
	case Unsaved:
		return "unsaved"
	case LocalOnly:
		return "local-only"
	case RemoteClean:
		return "remote-clean"
	case RemoteDirty:
		return "remote-dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RemoteBacked reports whether documents in s carry a remote identity.
func (s State) RemoteBacked() bool {
	return s == RemoteClean || s == RemoteDirty
}

// Event is an input to the state machine.
type Event int

const (
	// EventPersistLocal: the document diverged and is being written to the device.
	EventPersistLocal Event = iota
	// EventSaveRequested: the user asked for a remote save.
	EventSaveRequested
	// EventRemoteSaved: the remote create or update succeeded.
	EventRemoteSaved
	// EventRemoteLost: the server no longer has the diagram.
	EventRemoteLost
	// EventReset: the editor starts over with a fresh document.
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventPersistLocal:
		return "persist-local"
	case EventSaveRequested:
		return "save-requested"
	case EventRemoteSaved:
		return "remote-saved"
	case EventRemoteLost:
		return "remote-lost"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Command is a side effect the controller performs for a transition.
type Command int

const (
	// WriteLocal overwrites the current-editing snapshot.
	WriteLocal Command = iota
	// WriteModified records the document in the locally-modified side table.
	WriteModified
	// ClearModified drops the document from the side table.
	ClearModified
	// CreateRemote issues a remote create.
	CreateRemote
	// UpdateRemote issues a remote update.
	UpdateRemote
	// ClearLocal removes the current-editing snapshot.
	ClearLocal
)

func (c Command) String() string {
	switch c {
	case WriteLocal:
		return "write-local"
	case WriteModified:
		return "write-modified"
	case ClearModified:
		return "clear-modified"
	case CreateRemote:
		return "create-remote"
	case UpdateRemote:
		return "update-remote"
	case ClearLocal:
		return "clear-local"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Transition returns the state reached from s on e and the commands that
// must succeed, in order, for the controller to commit it. It performs no I/O.
//
// Once a document is remotely backed only EventRemoteLost removes the
// identity, and it leads to LocalOnly. Unsaved is re-entered only through
// EventReset, which starts a different document.
func Transition(s State, e Event) (State, []Command, error) {
	switch e {
	case EventReset:
		return Unsaved, []Command{ClearLocal}, nil

	case EventPersistLocal:
		switch s {
		case Unsaved, LocalOnly:
			return LocalOnly, []Command{WriteLocal}, nil
		case RemoteClean, RemoteDirty:
			return RemoteDirty, []Command{WriteLocal, WriteModified}, nil
		}

	case EventSaveRequested:
		switch s {
		case Unsaved, LocalOnly:
			return s, []Command{CreateRemote}, nil
		case RemoteClean, RemoteDirty:
			return s, []Command{UpdateRemote}, nil
		}

	case EventRemoteSaved:
		switch s {
		case Unsaved, LocalOnly:
			return RemoteClean, []Command{WriteLocal}, nil
		case RemoteClean, RemoteDirty:
			return RemoteClean, []Command{ClearModified, WriteLocal}, nil
		}

	case EventRemoteLost:
		if s.RemoteBacked() {
			return LocalOnly, []Command{ClearModified, WriteLocal}, nil
		}
	}

	return s, nil, fmt.Errorf("autosave: no transition from %s on %s", s, e)
}

// initialState derives the state of a document restored at start-up.
func initialState(hasLocal, remoteBacked, pendingRemote bool) State {
	switch {
	case remoteBacked && pendingRemote:
		return RemoteDirty
	case remoteBacked:
		return RemoteClean
	case hasLocal:
		return LocalOnly
	default:
		return Unsaved
	}
}
