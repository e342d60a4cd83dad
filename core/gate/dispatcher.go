package gate

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher delivers lifecycle events to registered gates.
type Dispatcher struct {
	mu     sync.RWMutex
	db     *gorm.DB
	logger *zap.Logger
	gates  []*Gate
}

// NewDispatcher creates a dispatcher whose gates run callbacks against db.
func NewDispatcher(db *gorm.DB, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{db: db, logger: logger}
}

// Register adds a gate waiting for names in namespace.
func (d *Dispatcher) Register(namespace string, names []string, callback Callback) *Gate {
	g := New(d.db, namespace, names, callback, d.logger)
	d.mu.Lock()
	d.gates = append(d.gates, g)
	d.mu.Unlock()
	return g
}

// Notify delivers ev to every gate and joins the errors they return.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) error {
	d.mu.RLock()
	gates := append([]*Gate(nil), d.gates...)
	d.mu.RUnlock()

	var errs []error
	for _, g := range gates {
		if _, err := g.Observe(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run consumes events until the channel is closed or ctx is done.
// Callback errors are logged; Run only fails when ctx ends.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := d.Notify(ctx, ev); err != nil {
				d.logger.Error("Event dispatch failed",
					zap.String("namespace", ev.Namespace),
					zap.String("name", ev.Name),
					zap.Error(err))
			}
		}
	}
}

// Pending returns the number of gates that have not fired.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, g := range d.gates {
		if g.State() == Pending {
			n++
		}
	}
	return n
}
