package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"pulseflow/internal/apperr"
	"pulseflow/internal/dragdrop"
	"pulseflow/internal/notification"
	"pulseflow/internal/realtime"
	"pulseflow/internal/session"
)

// Workspace is everything one signed-in user works with: the board mirror,
// the drag engine over it, the notification feed and the open overlay.
type Workspace struct {
	Store *Store
	Drag  *dragdrop.Engine
	Feed  *notification.Aggregator

	mu      sync.Mutex
	overlay Overlay
	cancel  context.CancelFunc

	// lastUsed is UnixNano of the last Get or released hold.
	lastUsed atomic.Int64
	holds    atomic.Int32
}

// Hold keeps the workspace from idle eviction until release is called.
// Long-lived readers such as event streams take one.
func (w *Workspace) Hold() (release func()) {
	w.holds.Inc()
	var once sync.Once
	return func() {
		once.Do(func() {
			w.touch()
			w.holds.Dec()
		})
	}
}

func (w *Workspace) touch() {
	w.lastUsed.Store(time.Now().UnixNano())
}

func (w *Workspace) idle(cutoff time.Time) bool {
	return w.holds.Load() == 0 && w.lastUsed.Load() < cutoff.UnixNano()
}

func (w *Workspace) Overlay() Overlay {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.overlay
}

// OpenOverlay replaces the current overlay. Board and task targets must be
// in the mirror.
func (w *Workspace) OpenOverlay(kind OverlayKind, target Target) (Overlay, error) {
	o, err := OpenOverlay(kind, target)
	if err != nil {
		return Overlay{}, err
	}
	state := w.Store.snapshotState()
	if o.BoardID != nil {
		if _, ok := state.Board(*o.BoardID); !ok {
			return Overlay{}, apperr.NotFoundf("board not found")
		}
	}
	if o.TaskID != nil {
		if _, ok := state.Task(*o.TaskID); !ok {
			return Overlay{}, apperr.NotFoundf("task not found")
		}
	}
	w.mu.Lock()
	w.overlay = o
	w.mu.Unlock()
	return o, nil
}

func (w *Workspace) CloseOverlay() {
	w.mu.Lock()
	w.overlay = Overlay{}
	w.mu.Unlock()
}

func (w *Workspace) close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.Store.Close()
}

type Deps struct {
	Boards   BoardRepository
	Tasks    TaskRepository
	Notes    notification.Repository
	DueTasks notification.DueTaskRepository
	Invites  notification.InviteResponder
	// Subscriber may be nil; workspaces then only change on explicit reloads.
	Subscriber realtime.Subscriber
	Feed       notification.Options
	// RetryDelay is the pause before a dropped change feed is resubscribed.
	RetryDelay time.Duration
}

// Registry keeps one Workspace per user. Workspaces live until they sit
// idle past EvictIdle's cutoff or the registry closes.
type Registry struct {
	deps Deps

	mu     sync.Mutex
	spaces map[uuid.UUID]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, spaces: map[uuid.UUID]*Workspace{}}
}

// Get returns the user's workspace, loading it on first use.
func (r *Registry) Get(ctx context.Context, sess session.Session) (*Workspace, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	w, ok := r.spaces[sess.UserID]
	if ok {
		w.touch()
	}
	r.mu.Unlock()
	if ok {
		return w, nil
	}

	w = r.open(ctx, sess)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.spaces[sess.UserID]; ok {
		w.close()
		existing.touch()
		return existing, nil
	}
	w.touch()
	r.spaces[sess.UserID] = w
	return w, nil
}

func (r *Registry) open(ctx context.Context, sess session.Session) *Workspace {
	store := NewStore(sess, r.deps.Boards, r.deps.Tasks)
	store.SetRetryDelay(r.deps.RetryDelay)
	store.LoadBoards(ctx)

	opts := r.deps.Feed
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = r.deps.RetryDelay
	}
	feed := notification.NewAggregator(sess, r.deps.Notes, r.deps.DueTasks, r.deps.Invites, opts)
	if err := feed.Refresh(ctx); err != nil {
		log.WithError(err).WithField("user_id", sess.UserID).Warn("notification feed loaded with errors")
	}

	w := &Workspace{
		Store: store,
		Drag:  dragdrop.NewEngine(store),
		Feed:  feed,
	}

	if r.deps.Subscriber != nil {
		wctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		logger := log.WithField("user_id", sess.UserID)
		go func() {
			if err := store.Watch(wctx, r.deps.Subscriber); err != nil {
				logger.WithError(err).Error("board watch stopped")
			}
		}()
		go func() {
			if err := feed.Watch(wctx, r.deps.Subscriber); err != nil {
				logger.WithError(err).Error("notification watch stopped")
			}
		}()
	}
	return w
}

// EvictIdle closes the workspaces nobody holds that were last used before
// cutoff and reports how many it closed. A later Get loads a fresh one.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	var idle []*Workspace
	for id, w := range r.spaces {
		if w.idle(cutoff) {
			idle = append(idle, w)
			delete(r.spaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range idle {
		w.close()
	}
	return len(idle)
}

// RunJanitor evicts workspaces idle for longer than idle once per interval
// until ctx ends.
func (r *Registry) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.EvictIdle(now.Add(-idle)); n > 0 {
				log.WithField("count", n).Info("🧹 Closed idle workspaces")
			}
		}
	}
}

// Close tears down every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	spaces := r.spaces
	r.spaces = map[uuid.UUID]*Workspace{}
	r.mu.Unlock()
	for _, w := range spaces {
		w.close()
	}
}
