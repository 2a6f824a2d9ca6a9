// Package objtable is a handle/object-name registry guarded by
// rwqueue.Mutex: a stand-in for the kind of object-name query surface a
// kernel-mode resource manager would expose, built entirely in user space
// around this module's lock.
//
// The registry itself (the name-to-entry map) is protected by one
// rwqueue.Mutex held briefly in shared mode for lookups and exclusive mode
// for insert/delete. Each entry additionally carries its own
// rwqueue.Mutex guarding its payload, so readers and writers of a single
// entry's payload don't contend with unrelated lookups in the registry.
package objtable

import (
	"fmt"

	"github.com/google/btree"

	"github.com/nbtaylor-labs/rwqueue/rwqueue"
)

// Entry is one named object in the registry. Payload is guarded by Lock:
// callers must hold it in shared mode to read Payload and exclusive mode
// to write it.
type Entry struct {
	Name    string
	Lock    *rwqueue.Mutex
	Payload interface{}
}

// nameItem is a btree.Item ordering entries by name, used only to keep
// List's enumeration order independent of Go's unspecified map iteration
// order — NT object namespaces are browsable in name order, and this gives
// that same property to this in-process stand-in.
type nameItem string

func (n nameItem) Less(than btree.Item) bool {
	return n < than.(nameItem)
}

// Table is a name-keyed registry of Entry values.
type Table struct {
	guard   *rwqueue.Mutex
	entries map[string]*Entry
	names   *btree.BTree
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		guard:   rwqueue.New(),
		entries: make(map[string]*Entry),
		names:   btree.New(32),
	}
}

// List returns every registered name in sorted order.
func (t *Table) List() []string {
	t.guard.AcquireShared()
	defer t.guard.ReleaseShared()
	names := make([]string, 0, t.names.Len())
	t.names.Ascend(func(i btree.Item) bool {
		names = append(names, string(i.(nameItem)))
		return true
	})
	return names
}

// Lookup returns the entry named name, or nil if no such entry exists. The
// registry's own lock is held only long enough to copy out the pointer;
// the returned Entry's own Lock governs access to its Payload.
func (t *Table) Lookup(name string) *Entry {
	t.guard.AcquireShared()
	e := t.entries[name]
	t.guard.ReleaseShared()
	return e
}

// Insert adds a new entry named name with the given initial payload. It
// returns an error if an entry with that name already exists.
func (t *Table) Insert(name string, payload interface{}) (*Entry, error) {
	t.guard.AcquireExclusive()
	defer t.guard.ReleaseExclusive()
	if _, ok := t.entries[name]; ok {
		return nil, fmt.Errorf("objtable: entry %q already exists", name)
	}
	e := &Entry{Name: name, Lock: rwqueue.New(), Payload: payload}
	t.entries[name] = e
	t.names.ReplaceOrInsert(nameItem(name))
	return e, nil
}

// Delete removes the entry named name. It returns an error if no such entry
// exists. If the entry's own lock is currently held or has waiters, the
// entry's Close panics and that panic propagates as a caller bug, the same
// way it would for any other Mutex used out of turn.
func (t *Table) Delete(name string) error {
	t.guard.AcquireExclusive()
	defer t.guard.ReleaseExclusive()
	e, ok := t.entries[name]
	if !ok {
		return fmt.Errorf("objtable: entry %q not found", name)
	}
	if err := e.Lock.Close(); err != nil {
		return err
	}
	delete(t.entries, name)
	t.names.Delete(nameItem(name))
	return nil
}

// LookupForWrite returns the entry named name with a shared ownership of
// its own lock already held, then upgrades that ownership to exclusive via
// ConvertSharedToExclusive without ever losing the entry's place in its own
// waiter queue — this is the registry's one direct exercise of the lock's
// shared-to-exclusive conversion (spec §4.2 item 3): a caller that looked
// up an entry expecting to read it, but then decided it needs to write,
// upgrades in place instead of releasing and re-acquiring and risking
// another writer getting in first.
func (t *Table) LookupForWrite(name string) (*Entry, error) {
	e := t.Lookup(name)
	if e == nil {
		return nil, fmt.Errorf("objtable: entry %q not found", name)
	}
	e.Lock.AcquireShared()
	e.Lock.ConvertSharedToExclusive()
	return e, nil
}
