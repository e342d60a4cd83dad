// Package gate runs deferred work once a set of named entities is available.
//
// A Gate starts Pending and fires the first time it observes, within its
// namespace, an event for one of its dependencies while all of them have been
// seen. The callback runs once inside a database transaction. The gate stays
// Fired whatever the outcome; store errors are logged and swallowed, anything
// else is returned to the caller of Observe. Recovering from a failed callback
// is left to an administrative resync. Work that must only happen once the
// transaction committed, such as announcing its results, goes in OnDone.
//
// A Dispatcher fans a plain event feed out to any number of gates:
//
//	d := gate.NewDispatcher(db, logger)
//	g := d.Register("surveymaker", []string{"Survey", "Question"}, build)
//	g.OnDone(func(ctx context.Context, err error) { /* publish or discard */ })
//
//	d.Notify(ctx, gate.Event{Namespace: "surveymaker", Name: "Survey"})
package gate
