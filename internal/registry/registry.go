// Package registry keeps the set of live sessions and their count.
//
// The map and the count change together under one mutex, so the
// number of entries always equals Count().  Killing a session only
// closes its connection; the session removes itself when its read
// loop notices.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"

	errs "telnetd/internal/errors"
	"telnetd/internal/metrics"
	"telnetd/util"
)

// Client is a registered session.
type Client interface {
	// ID returns the identifier the client is registered under.
	ID() string
	// Kill closes the client's connection.  It must be safe to call
	// from any goroutine and must not wait for the client to exit.
	Kill() error
	// String describes the client in listings.
	String() string
}

// Registry is a concurrency-safe directory of live clients.
type Registry struct {
	max     int
	logger  *util.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	clients map[string]Client
	count   atomic.Int64
}

// New returns an empty Registry advertising max as the admission
// limit.
func New(max int, logger *util.Logger, m *metrics.Collector) *Registry {
	return &Registry{
		max:     max,
		logger:  logger,
		metrics: m,
		clients: make(map[string]Client),
	}
}

// Max returns the admission limit.
func (r *Registry) Max() int { return r.max }

// Count returns the number of registered clients.
func (r *Registry) Count() int { return int(r.count.Load()) }

// Connect registers c under its id.  A second registration of the same
// id is ignored so that the count never drifts from the map size.
func (r *Registry) Connect(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, ok := r.clients[id]; ok {
		r.logger.Warn("client %s already registered", id)
		return
	}
	r.clients[id] = c
	r.count.Add(1)
	r.metrics.SessionOpened()
}

// Disconnect removes c.  Removing a client that is not registered, or
// has been replaced by another value under the same id, is a no-op.
func (r *Registry) Disconnect(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if cur, ok := r.clients[id]; !ok || cur != c {
		return
	}
	delete(r.clients, id)
	r.count.Add(-1)
	r.metrics.SessionClosed()
}

// Lookup returns the client registered under id.
func (r *Registry) Lookup(id string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// List renders every registered client, the live count and the limit
// as a table.  Rows are ordered by id.
func (r *Registry) List() string {
	type row struct{ id, desc string }

	r.mu.Lock()
	rows := make([]row, 0, len(r.clients))
	for id, c := range r.clients {
		rows = append(rows, row{id, c.String()})
	}
	count := r.Count()
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 8, 4, ' ', 0)
	fmt.Fprintln(tw, "Client ID\tClient Object")
	fmt.Fprintln(tw, "=========\t=============")
	for _, rw := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", rw.id, rw.desc)
	}
	tw.Flush()
	fmt.Fprintf(&b, "Active Connections = %d, Max Connections = %d\n", count, r.max)
	return b.String()
}

// Kill closes the connection of the client registered under id.  It
// returns ErrMissingIdentifier for a blank id, ErrUnknownClient when
// no such client exists and an error matching ErrKillFailed when the
// close fails.  The count is not changed here.
func (r *Registry) Kill(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errs.ErrMissingIdentifier
	}

	c, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrUnknownClient, id)
	}

	err := c.Kill()
	r.metrics.KillRequested(err != nil)
	if err != nil {
		r.logger.Error("failed to disconnect client %s: %v", id, err)
		r.metrics.RecordError(err.Error())
		if !errs.Is(err, errs.ErrKillFailed) {
			err = errs.Kill(id, err)
		}
		return err
	}
	r.logger.Verbose("killed client %s", id)
	return nil
}

// KillAll kills every registered client in ascending id order.  It
// keeps going after a failure and returns all failures combined.
// Clients that leave on their own while the batch runs are skipped.
func (r *Registry) KillAll() error {
	var result *multierror.Error
	for _, id := range r.IDs() {
		err := r.Kill(id)
		if err == nil || errs.Is(err, errs.ErrUnknownClient) {
			continue
		}
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
