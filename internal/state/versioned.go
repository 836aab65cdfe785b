package state

import (
	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/metrics"
	"github.com/ashenfad/tic-go/internal/value"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	parentCommitPrefix = "__parent_commit__"
	commitKeysetPrefix = "__commit_keyset__"
	diffKeysKey        = "__diff_keys__"
)

// Freezer converts a live value (which may hold a closure, class instance,
// or other reference into the running interpreter) into a form safe to
// gob-encode for durable storage. Rehydrator is its inverse, given whatever
// opaque agent handle was attached via Checkout/rehydrate. Both are wired
// in by the eval/freeze layer via SetCodec; until then they default to the
// identity function, mirroring the ImportError fallback in
// original_source/tic/state/versioned.py ("Fallback if eval package not
// available").
type Freezer func(value.Value) value.Value
type Rehydrator func(v value.Value, agent any) value.Value

// Versioned is a commit-chain-backed State: every Snapshot freezes the
// current ephemeral writes into an immutable commit keyed by an opaque
// hash, with a parent pointer back to the previous commit. Grounded on
// original_source/tic/state/versioned.py.
type Versioned struct {
	store   kv.Store
	current string

	ephemeral *Ephemeral
	removed   map[string]bool
	commitKeys map[string]string

	rehydrationAgent any
	freeze           Freezer
	rehydrate        Rehydrator

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewVersioned opens a Versioned store at commitHash (empty string for a
// fresh, commit-less store).
func NewVersioned(store kv.Store, commitHash string) *Versioned {
	v := &Versioned{
		store:      store,
		current:    commitHash,
		ephemeral:  NewEphemeral(),
		removed:    map[string]bool{},
		commitKeys: map[string]string{},
		freeze:     func(val value.Value) value.Value { return val },
		rehydrate:  func(val value.Value, _ any) value.Value { return val },
		logger:     zap.NewNop(),
	}
	if commitHash != "" {
		if raw, ok := store.Get(commitKeysetPrefix + commitHash); ok {
			if m, err := decodeStrMap(raw); err == nil {
				v.commitKeys = m
			}
		}
	}
	return v
}

// SetCodec wires in the real freeze/rehydrate functions from the eval
// layer; called once at interpreter construction time.
func (v *Versioned) SetCodec(freeze Freezer, rehydrate Rehydrator) {
	if freeze != nil {
		v.freeze = freeze
	}
	if rehydrate != nil {
		v.rehydrate = rehydrate
	}
}

// SetLogger wires in a *zap.Logger for commit/checkout diagnostics,
// mirroring the explicit-logger-as-parameter idiom nakama's constructors
// use throughout server/*.go. Defaults to zap.NewNop() so a Versioned
// built without one stays silent.
func (v *Versioned) SetLogger(logger *zap.Logger) {
	if logger != nil {
		v.logger = logger
	}
}

// SetMetrics wires in a *metrics.Metrics so Snapshot records
// tic.snapshot.count.
func (v *Versioned) SetMetrics(m *metrics.Metrics) {
	v.metrics = m
}

func (v *Versioned) BaseStore() State { return v }

// HasUncommitted reports whether this store has ephemeral writes not yet
// folded into a commit via Snapshot. Grounded on
// original_source/tic/render/view.py's `state.ephemeral.keys()` guard:
// view() refuses to render a store with uncommitted changes.
func (v *Versioned) HasUncommitted() bool { return v.ephemeral.Len() > 0 }

// CurrentCommit returns the commit hash this store is positioned at (empty
// for a fresh, commit-less store).
func (v *Versioned) CurrentCommit() string { return v.current }

func (v *Versioned) versionedKey(key, commitHash string) string {
	if commitHash == "" {
		commitHash = v.current
	}
	return commitHash + ":" + key
}

func (v *Versioned) Get(key string, def value.Value) value.Value {
	if v.ephemeral.Contains(key) {
		return v.ephemeral.Get(key, def)
	}
	if v.removed[key] {
		return def
	}
	vk, ok := v.commitKeys[key]
	if !ok {
		return def
	}
	raw, ok := v.store.Get(vk)
	if !ok {
		return def
	}
	val, err := decodeValue(raw)
	if err != nil {
		return def
	}
	return v.rehydrate(val, v.rehydrationAgent)
}

func (v *Versioned) Set(key string, val value.Value) {
	v.ephemeral.Set(key, val)
	delete(v.removed, key)
}

func (v *Versioned) Remove(key string) bool {
	if v.ephemeral.Remove(key) {
		return true
	}
	if _, ok := v.commitKeys[key]; ok {
		v.removed[key] = true
		return true
	}
	return false
}

func (v *Versioned) Keys() []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range v.ephemeral.Keys() {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range v.commitKeys {
		if v.removed[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func (v *Versioned) Values() []value.Value {
	out := make([]value.Value, 0)
	for _, k := range v.Keys() {
		out = append(out, v.Get(k, value.None))
	}
	return out
}

func (v *Versioned) Items() []Item {
	out := make([]Item, 0)
	for _, k := range v.Keys() {
		out = append(out, Item{Key: k, Val: v.Get(k, value.None)})
	}
	return out
}

func (v *Versioned) Contains(key string) bool {
	if v.ephemeral.Contains(key) {
		return true
	}
	if v.removed[key] {
		return false
	}
	_, ok := v.commitKeys[key]
	return ok
}

// History yields the commit chain starting at commitHash (or the current
// commit if empty), walking parent pointers back to the root.
func (v *Versioned) History(commitHash string) []string {
	if commitHash == "" {
		commitHash = v.current
	}
	var out []string
	for commitHash != "" {
		out = append(out, commitHash)
		raw, ok := v.store.Get(parentCommitPrefix + commitHash)
		if !ok {
			break
		}
		commitHash = decodeStr(raw)
	}
	return out
}

// genCommitHash mints a commit identifier the same way nakama mints a
// per-request trace ID in its console gRPC interceptor
// (uuid.Must(uuid.NewV4()).String()), rather than hand-rolling random hex.
func genCommitHash() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Snapshot freezes the current ephemeral writes into a new immutable
// commit and returns its hash. If there are no ephemeral writes, no new
// commit is created and the current hash is returned unchanged; pending
// removals alone do not produce a commit and stay pending until a later
// Snapshot that has writes.
func (v *Versioned) Snapshot() string {
	if v.ephemeral.Len() == 0 {
		return v.current
	}

	newHash := genCommitHash()
	writes := map[string][]byte{}
	newCommitKeys := map[string]string{}

	var diffKeys []string
	for _, k := range v.ephemeral.Keys() {
		if len(k) >= 2 && k[:2] == "__" {
			continue
		}
		diffKeys = append(diffKeys, k)
	}
	diffWire := value.NewList()
	for _, k := range diffKeys {
		diffWire.Elems = append(diffWire.Elems, value.Str(k))
	}
	v.ephemeral.Set(diffKeysKey, diffWire)

	for key, vk := range v.commitKeys {
		if v.removed[key] {
			continue
		}
		newCommitKeys[key] = vk
	}

	for _, item := range v.ephemeral.Items() {
		frozen := v.freeze(item.Val)
		encoded, err := encodeValue(frozen)
		if err != nil {
			panic("state: failed to encode value for commit: " + err.Error())
		}
		vk := v.versionedKey(item.Key, newHash)
		writes[vk] = encoded
		newCommitKeys[item.Key] = vk
	}

	keysetEncoded, err := encodeStrMap(newCommitKeys)
	if err != nil {
		panic("state: failed to encode commit keyset: " + err.Error())
	}
	writes[commitKeysetPrefix+newHash] = keysetEncoded
	writes[parentCommitPrefix+newHash] = encodeStr(v.current)

	v.store.SetMany(writes)
	v.commitKeys = newCommitKeys
	v.current = newHash
	v.removed = map[string]bool{}
	v.ephemeral = NewEphemeral()

	v.logger.Debug("committed snapshot", zap.String("hash", newHash), zap.Int("keys", len(writes)))
	if v.metrics != nil {
		v.metrics.RecordSnapshot()
	}

	return newHash
}

// Checkout returns a new Versioned positioned at commitHash, or false if
// that hash isn't in this store's history. If agent is non-nil, stored
// values are lazily rehydrated against it as they're read.
func (v *Versioned) Checkout(commitHash string, agent any) (*Versioned, bool) {
	found := false
	for _, h := range v.History("") {
		if h == commitHash {
			found = true
			break
		}
	}
	if !found {
		v.logger.Warn("checkout of unknown commit", zap.String("hash", commitHash))
		return nil, false
	}
	next := NewVersioned(v.store, commitHash)
	next.freeze = v.freeze
	next.rehydrate = v.rehydrate
	next.logger = v.logger
	next.metrics = v.metrics
	if agent != nil {
		next.rehydrationAgent = agent
		for _, item := range next.ephemeral.Items() {
			rehydrated := next.rehydrate(item.Val, agent)
			next.ephemeral.Set(item.Key, rehydrated)
		}
	}
	return next, true
}

// Diffs returns the key/value changes introduced by commitHash (or the
// current commit if empty) as a map keyed by changed key; the order in
// which the keys were written is not kept.
func (v *Versioned) Diffs(commitHash string) map[string]value.Value {
	target := commitHash
	if target == "" {
		target = v.current
	}
	if target == "" {
		return map[string]value.Value{}
	}
	commitState, ok := v.Checkout(target, nil)
	if !ok {
		return map[string]value.Value{}
	}
	out := map[string]value.Value{}
	diffKeysVal := commitState.Get(diffKeysKey, value.NewList())
	list, ok := diffKeysVal.(*value.List)
	if !ok {
		return out
	}
	for _, kv := range list.Elems {
		if ks, ok := kv.(value.Str); ok {
			out[string(ks)] = commitState.Get(string(ks), value.None)
		}
	}
	return out
}
