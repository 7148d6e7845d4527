package janode

import (
	"context"
	"sync"

	"github.com/meetecho/janode-sub000/internal/errlib"
	"github.com/meetecho/janode-sub000/internal/idgen"
	"github.com/meetecho/janode-sub000/internal/log"
	"github.com/meetecho/janode-sub000/internal/metrics"
)

// transaction is one pending request/response correlation. owner is
// whichever Connection/Session/Handle registered it; only that owner may
// resolve or reject it.
type transaction struct {
	id      string
	owner   any
	request string
	resolve func(map[string]any)
	reject  func(error)
}

// transactionManager is the single id -> transaction table backing a
// Connection; every mutation to pending transactions goes through this
// type. A sync.Mutex-guarded map plus an id generator, with an explicit
// owner and a resolve/reject pair per entry instead of a single response
// channel, so ack-vs-success-vs-error can be told apart by the caller.
type transactionManager struct {
	mu    sync.Mutex
	table map[string]*transaction
	gen   *idgen.Generator
	gauge *metrics.PendingGauge
	log   *log.Logger
}

func newTransactionManager(logger *log.Logger) *transactionManager {
	return &transactionManager{
		table: make(map[string]*transaction),
		gen:   idgen.New(),
		gauge: metrics.NewPendingGauge("janode"),
		log:   logger,
	}
}

// nextID returns a fresh transaction id from this manager's generator.
func (tm *transactionManager) nextID() string {
	return tm.gen.Next()
}

// create registers a new pending transaction. Fails with ErrDuplicateTransaction
// if id is already in use.
func (tm *transactionManager) create(
	id string,
	owner any,
	request string,
	resolve func(map[string]any),
	reject func(error),
) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.table[id]; exists {
		return errlib.Newf(ErrDuplicateTransaction, "transaction %s already registered", id)
	}
	tm.table[id] = &transaction{id: id, owner: owner, request: request, resolve: resolve, reject: reject}
	tm.gauge.Inc(context.Background())
	return nil
}

func (tm *transactionManager) has(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.table[id]
	return ok
}

func (tm *transactionManager) get(id string) (*transaction, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.table[id]
	return t, ok
}

func (tm *transactionManager) ownerOf(id string) (any, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.table[id]
	if !ok {
		return nil, false
	}
	return t.owner, true
}

// pop removes id if present and owned by owner, returning the transaction.
// Ownership mismatch or a missing id returns ok=false and leaves the table
// untouched; the call is silently ignored.
func (tm *transactionManager) pop(id string, owner any) (*transaction, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t, ok := tm.table[id]
	if !ok || t.owner != owner {
		return nil, false
	}
	delete(tm.table, id)
	tm.gauge.Dec(context.Background())
	return t, true
}

// closeWithSuccess resolves the transaction if it exists and owner matches;
// a no-op otherwise (double-close and wrong-owner are both silently ignored).
func (tm *transactionManager) closeWithSuccess(id string, owner any, data map[string]any) {
	t, ok := tm.pop(id, owner)
	if !ok {
		return
	}
	if t.resolve != nil {
		t.resolve(data)
	}
}

func (tm *transactionManager) closeWithError(id string, owner any, err error) {
	t, ok := tm.pop(id, owner)
	if !ok {
		return
	}
	if t.reject != nil {
		t.reject(err)
	}
}

// closeAllWithError fails every transaction matching owner (or every
// transaction, if owner is nil) with err. Used when a parent entity is torn
// down: connection close, session destroy, handle detach.
func (tm *transactionManager) closeAllWithError(owner any, err error) {
	tm.mu.Lock()
	var victims []*transaction
	for id, t := range tm.table {
		if owner != nil && t.owner != owner {
			continue
		}
		victims = append(victims, t)
		delete(tm.table, id)
		tm.gauge.Dec(context.Background())
	}
	tm.mu.Unlock()

	for _, t := range victims {
		if t.reject != nil {
			t.reject(err)
		}
	}
}

func (tm *transactionManager) size() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.table)
}
