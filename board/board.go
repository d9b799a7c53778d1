package board

import (
	"context"
)

type BoardSettings struct {
	Connection *ConnectionSettings
	Reconciler *ReconcilerSettings
}

func DefaultBoardSettings() *BoardSettings {
	return &BoardSettings{
		Connection: DefaultConnectionSettings(),
		Reconciler: DefaultReconcilerSettings(),
	}
}

// Board wires the session singletons together: one registry, one store, one
// reconciler, one connection, plus the selection and optimistic action
// layers on top. It lives for the whole session; all mutation funnels
// through the reconciler or the action layer.
type Board struct {
	ctx    context.Context
	cancel context.CancelFunc

	registry   *PathRegistry
	store      *EntityStore
	reconciler *Reconciler
	connection *ConnectionManager
	selection  *SelectionManager
	api        *DashboardApi
	actions    *ActionManager
}

func newBoard(ctx context.Context, apiUrl string, settings *BoardSettings) *Board {
	cancelCtx, cancel := context.WithCancel(ctx)
	registry := NewPathRegistry()
	store := NewEntityStore(registry)
	reconciler := NewReconciler(store, settings.Reconciler)
	api := NewDashboardApiWithContext(cancelCtx, apiUrl)
	return &Board{
		ctx:        cancelCtx,
		cancel:     cancel,
		registry:   registry,
		store:      store,
		reconciler: reconciler,
		selection:  NewSelectionManager(registry),
		api:        api,
	}
}

// NewBoardLive starts a live session against a websocket event stream plus
// the mutation api.
func NewBoardLive(
	ctx context.Context,
	liveUrl string,
	apiUrl string,
	auth *SessionAuth,
	settings *BoardSettings,
) *Board {
	b := newBoard(ctx, apiUrl, settings)
	if auth != nil {
		b.api.SetByJwt(auth.ByJwt)
	}
	b.connection = NewLiveConnection(b.ctx, liveUrl, auth, b.registry, b.reconciler, settings.Connection)
	b.actions = NewActionManager(b.store, b.registry, b.connection, b.api)
	return b
}

// NewBoardArchiveUrl starts a read-only session from an archive URL. The
// load happens before return; a failure means the session never starts and
// no partial graph is visible.
func NewBoardArchiveUrl(
	ctx context.Context,
	archiveUrl string,
	apiUrl string,
	settings *BoardSettings,
) (*Board, error) {
	b := newBoard(ctx, apiUrl, settings)
	connection, err := NewArchiveConnectionFromUrl(b.ctx, archiveUrl, b.registry, b.reconciler, settings.Connection)
	b.connection = connection
	b.actions = NewActionManager(b.store, b.registry, b.connection, b.api)
	if err != nil {
		return b, err
	}
	return b, nil
}

// NewBoardArchiveFile starts a read-only session from a locally-supplied
// archive file.
func NewBoardArchiveFile(
	ctx context.Context,
	path string,
	settings *BoardSettings,
) (*Board, error) {
	b := newBoard(ctx, "", settings)
	connection, err := NewArchiveConnectionFromFile(b.ctx, path, b.registry, b.reconciler, settings.Connection)
	b.connection = connection
	b.actions = NewActionManager(b.store, b.registry, b.connection, b.api)
	if err != nil {
		return b, err
	}
	return b, nil
}

func (self *Board) Registry() *PathRegistry {
	return self.registry
}

func (self *Board) Store() *EntityStore {
	return self.store
}

func (self *Board) Reconciler() *Reconciler {
	return self.reconciler
}

func (self *Board) Connection() *ConnectionManager {
	return self.connection
}

func (self *Board) Selection() *SelectionManager {
	return self.selection
}

func (self *Board) Api() *DashboardApi {
	return self.api
}

func (self *Board) Actions() *ActionManager {
	return self.actions
}

func (self *Board) Close() {
	if self.connection != nil {
		self.connection.Close()
	}
	self.api.Close()
	self.cancel()
}
