package gate

import (
	"context"
	"strings"
	"sync"

	"schema-sync/core/apperrors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State of a gate. The only transition is Pending to Fired.
type State int

const (
	Pending State = iota
	Fired
)

func (s State) String() string {
	if s == Fired {
		return "fired"
	}
	return "pending"
}

// Event announces that an entity became available.
type Event struct {
	Namespace string
	Name      string
}

// Callback is the deferred work. tx is the transaction it runs in.
type Callback func(ctx context.Context, tx *gorm.DB) error

// DoneFunc observes the end of the callback transaction: err is nil once it
// committed, or the error it was rolled back with.
type DoneFunc func(ctx context.Context, err error)

// Gate is a one-shot trigger over a dependency set.
type Gate struct {
	mu        sync.Mutex
	db        *gorm.DB
	logger    *zap.Logger
	namespace string
	deps      []string
	satisfied map[string]struct{}
	callback  Callback
	done      DoneFunc
	state     State
	err       error
}

// New creates a pending gate. Names are compared case-insensitively.
func New(db *gorm.DB, namespace string, names []string, callback Callback, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(n)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		deps = append(deps, n)
	}
	return &Gate{
		db:        db,
		logger:    logger,
		namespace: strings.ToLower(namespace),
		deps:      deps,
		satisfied: make(map[string]struct{}),
		callback:  callback,
	}
}

// Observe records ev and fires the gate if it completes the dependency set.
// It reports whether this call fired the gate. Store errors raised by the
// callback are logged and not returned.
func (g *Gate) Observe(ctx context.Context, ev Event) (bool, error) {
	g.mu.Lock()
	if g.state == Fired || strings.ToLower(ev.Namespace) != g.namespace {
		g.mu.Unlock()
		return false, nil
	}
	name := strings.ToLower(ev.Name)
	g.satisfied[name] = struct{}{}
	if !g.isDependency(name) || !g.complete() {
		g.mu.Unlock()
		return false, nil
	}
	g.state = Fired
	g.mu.Unlock()

	g.logger.Info("Dependency gate fired",
		zap.String("namespace", g.namespace),
		zap.Strings("dependencies", g.deps),
		zap.String("trigger", name))

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return g.callback(ctx, tx)
	})

	g.mu.Lock()
	g.err = err
	done := g.done
	g.mu.Unlock()

	if done != nil {
		done(ctx, err)
	}
	if err == nil {
		return true, nil
	}
	if apperrors.IsStoreError(err) {
		g.logger.Warn("Dependency gate callback rolled back, store not ready",
			zap.String("namespace", g.namespace), zap.Error(err))
		return true, nil
	}
	g.logger.Error("Dependency gate callback failed",
		zap.String("namespace", g.namespace), zap.Error(err))
	return true, err
}

// OnDone sets fn to run once the callback transaction has committed or
// rolled back. It must be set before the gate fires.
func (g *Gate) OnDone(fn DoneFunc) {
	g.mu.Lock()
	g.done = fn
	g.mu.Unlock()
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the error of the callback run, if the gate fired and it failed.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Waiting returns the dependencies not seen yet.
func (g *Gate) Waiting() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var waiting []string
	for _, d := range g.deps {
		if _, ok := g.satisfied[d]; !ok {
			waiting = append(waiting, d)
		}
	}
	return waiting
}

func (g *Gate) isDependency(name string) bool {
	for _, d := range g.deps {
		if d == name {
			return true
		}
	}
	return false
}

func (g *Gate) complete() bool {
	for _, d := range g.deps {
		if _, ok := g.satisfied[d]; !ok {
			return false
		}
	}
	return true
}
