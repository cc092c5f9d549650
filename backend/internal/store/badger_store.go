package store

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	apperrors "askgraph/backend/pkg/errors"
	"askgraph/backend/pkg/logger"
)

// Key layout. Components are separated by a NUL byte, which Ref values may not contain.
//
//	n <label> <value>                                -> node properties (JSON)
//	o <label> <value> <type> <otherLabel> <otherValue> -> relationship properties (JSON)
//	i <label> <value> <type> <otherLabel> <otherValue> -> empty (incoming mirror of an o key)
//
// A (from, type, to) triple holds at most one relationship.
const (
	prefixNode     = 'n'
	prefixOutgoing = 'o'
	prefixIncoming = 'i'
	keySep         = byte(0)
)

const (
	// Each conflict means another writer committed, so the budget covers
	// a few dozen writers racing on the same keys.
	defaultConflictRetries   = 32
	defaultConflictBaseDelay = 2 * time.Millisecond
	defaultConflictMaxDelay  = 100 * time.Millisecond
)

// BadgerOptions configures the embedded store
type BadgerOptions struct {
	Dir        string
	InMemory   bool
	SyncWrites bool
	// ConflictRetries bounds how often Update re-runs after a write conflict
	ConflictRetries int
	// ConflictBaseDelay and ConflictMaxDelay shape the jittered exponential
	// wait between conflict retries
	ConflictBaseDelay time.Duration
	ConflictMaxDelay  time.Duration
}

// BadgerStore is an embedded Store on top of BadgerDB
type BadgerStore struct {
	db        *badger.DB
	retries   int
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *zap.Logger
}

// OpenBadger opens (or creates) an embedded store
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	// Badger's own logger is too chatty for request logs
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, translate("open", fmt.Errorf("failed to open BadgerDB: %w", err))
	}

	s := &BadgerStore{
		db:        db,
		retries:   opts.ConflictRetries,
		baseDelay: opts.ConflictBaseDelay,
		maxDelay:  opts.ConflictMaxDelay,
		logger:    logger.Named("store.badger"),
	}
	if s.retries <= 0 {
		s.retries = defaultConflictRetries
	}
	if s.baseDelay <= 0 {
		s.baseDelay = defaultConflictBaseDelay
	}
	if s.maxDelay < s.baseDelay {
		s.maxDelay = max(defaultConflictMaxDelay, s.baseDelay)
	}
	return s, nil
}

// NewBadgerInMemory opens a store that lives only in RAM
func NewBadgerInMemory() (*BadgerStore, error) {
	return OpenBadger(BadgerOptions{InMemory: true})
}

func (s *BadgerStore) Backend() string { return "badger" }

func (s *BadgerStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return translate("ping", badger.ErrDBClosed)
	}
	return nil
}

func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return translate("view", err)
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
	return translate("view", err)
}

// Update runs fn in a serializable transaction. When the commit loses a write
// conflict it is re-run after a jittered exponential wait, until it commits,
// the retry budget is spent or ctx is done. An exhausted budget yields
// *errors.ErrConflict, never a store outage.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn})
		})
		if stderrors.Is(err, badger.ErrConflict) {
			s.logger.Debug("Transaction conflict, retrying", zap.Int("attempt", attempt))
			return err
		}
		return backoff.Permanent(err)
	}, s.conflictBackOff(ctx))

	if stderrors.Is(err, badger.ErrConflict) {
		s.logger.Warn("Giving up after repeated transaction conflicts", zap.Int("attempts", attempt))
		return apperrors.NewConflict("update", err)
	}
	return translate("update", err)
}

func (s *BadgerStore) conflictBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.baseDelay
	b.MaxInterval = s.maxDelay
	// the retry count and ctx bound the total wait
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retries)), ctx)
}

// ============================================================================
// Key encoding
// ============================================================================

func joinKey(prefix byte, parts ...string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(prefix)
	for _, p := range parts {
		buf.WriteByte(keySep)
		buf.WriteString(p)
	}
	return buf.Bytes()
}

func nodeKey(label, value string) []byte {
	return joinKey(prefixNode, label, value)
}

func labelPrefix(label string) []byte {
	return append(joinKey(prefixNode, label), keySep)
}

func edgeKey(prefix byte, at Ref, relType string, other Ref) []byte {
	return joinKey(prefix, at.Label, at.Value, relType, other.Label, other.Value)
}

// hopPrefix covers every edge of relType at ref, optionally restricted to one label on the other side
func hopPrefix(prefix byte, at Ref, relType, label string) []byte {
	key := append(joinKey(prefix, at.Label, at.Value, relType), keySep)
	if label != "" {
		key = append(key, label...)
		key = append(key, keySep)
	}
	return key
}

// otherEnd extracts the far node of an edge key given the prefix up to the relationship type
func otherEnd(key []byte, base []byte) (label, value string, ok bool) {
	rest := string(key[len(base):])
	parts := strings.SplitN(rest, string(keySep), 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func encodeProps(p Props) ([]byte, error) {
	if p == nil {
		p = Props{}
	}
	return json.Marshal(map[string]any(p))
}

func decodeProps(data []byte) (Props, error) {
	if len(data) == 0 {
		return Props{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	out := make(Props, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out, nil
}

// ============================================================================
// Transaction
// ============================================================================

type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) loadProps(key []byte) (Props, bool, error) {
	item, err := t.txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	props, err := decodeProps(data)
	if err != nil {
		return nil, false, err
	}
	return props, true, nil
}

func (t *badgerTx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *badgerTx) saveProps(key []byte, props Props) error {
	data, err := encodeProps(props)
	if err != nil {
		return err
	}
	return t.txn.Set(key, data)
}

func (t *badgerTx) FindOne(ctx context.Context, ref Ref) (*Node, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	props, found, err := t.loadProps(nodeKey(ref.Label, ref.Value))
	if err != nil || !found {
		return nil, err
	}
	return &Node{Label: ref.Label, Props: props}, nil
}

func (t *badgerTx) FindBy(ctx context.Context, label, prop string, value any) ([]*Node, error) {
	if err := validateIdentifier("label", label); err != nil {
		return nil, err
	}
	prefix := labelPrefix(label)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var nodes []*Node
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		data, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		props, err := decodeProps(data)
		if err != nil {
			return nil, err
		}
		if valuesEqual(props[prop], value) {
			nodes = append(nodes, &Node{Label: label, Props: props})
		}
	}
	return nodes, nil
}

func (t *badgerTx) UpsertNode(ctx context.Context, ref Ref, props Props) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	key := nodeKey(ref.Label, ref.Value)
	found, err := t.exists(key)
	if err != nil || found {
		return false, err
	}
	// The read above joins the transaction's conflict set, so two concurrent
	// creators of the same key cannot both commit.
	stored := copyProps(props)
	stored[ref.Key] = ref.Value
	if err := t.saveProps(key, stored); err != nil {
		return false, err
	}
	return true, nil
}

func (t *badgerTx) SetProps(ctx context.Context, ref Ref, props Props) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	key := nodeKey(ref.Label, ref.Value)
	current, found, err := t.loadProps(key)
	if err != nil || !found {
		return false, err
	}
	for k, v := range props {
		if k != ref.Key {
			current[k] = normalizeValue(v)
		}
	}
	return true, t.saveProps(key, current)
}

func (t *badgerTx) Increment(ctx context.Context, ref Ref, prop string, delta int64) (bool, error) {
	if err := ref.validate(); err != nil {
		return false, err
	}
	if err := validateIdentifier("property", prop); err != nil {
		return false, err
	}
	key := nodeKey(ref.Label, ref.Value)
	current, found, err := t.loadProps(key)
	if err != nil || !found {
		return false, err
	}
	current[prop] = current.Int64(prop) + delta
	return true, t.saveProps(key, current)
}

func (t *badgerTx) endpointsExist(from, to Ref) (bool, error) {
	for _, ref := range []Ref{from, to} {
		found, err := t.exists(nodeKey(ref.Label, ref.Value))
		if err != nil || !found {
			return false, err
		}
	}
	return true, nil
}

func (t *badgerTx) link(from Ref, relType string, to Ref, props Props) error {
	if err := t.saveProps(edgeKey(prefixOutgoing, from, relType, to), props); err != nil {
		return err
	}
	return t.txn.Set(edgeKey(prefixIncoming, to, relType, from), nil)
}

func (t *badgerTx) CreateRelationship(ctx context.Context, from Ref, relType string, to Ref, props Props) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	ok, err := t.endpointsExist(from, to)
	if err != nil || !ok {
		return false, err
	}
	return true, t.link(from, relType, to, copyProps(props))
}

func (t *badgerTx) MergeRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	ok, err := t.endpointsExist(from, to)
	if err != nil || !ok {
		return false, err
	}
	found, err := t.exists(edgeKey(prefixOutgoing, from, relType, to))
	if err != nil || found {
		return false, err
	}
	return true, t.link(from, relType, to, nil)
}

func (t *badgerTx) HasRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error) {
	if err := validatePair(from, relType, to); err != nil {
		return false, err
	}
	return t.exists(edgeKey(prefixOutgoing, from, relType, to))
}

type hop struct {
	label, value string
}

func (t *badgerTx) hops(ref Ref, relType string, dir Direction, label string) ([]hop, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if err := validateIdentifier("relationship", relType); err != nil {
		return nil, err
	}
	if err := validateLabelFilter(label); err != nil {
		return nil, err
	}
	prefix := byte(prefixOutgoing)
	if dir == Incoming {
		prefix = prefixIncoming
	}
	base := hopPrefix(prefix, ref, relType, "")
	scan := hopPrefix(prefix, ref, relType, label)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = scan
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var out []hop
	for it.Seek(scan); it.ValidForPrefix(scan); it.Next() {
		l, v, ok := otherEnd(it.Item().KeyCopy(nil), base)
		if ok {
			out = append(out, hop{label: l, value: v})
		}
	}
	return out, nil
}

func (t *badgerTx) Related(ctx context.Context, ref Ref, relType string, dir Direction, label string) ([]*Node, error) {
	hops, err := t.hops(ref, relType, dir, label)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(hops))
	for _, h := range hops {
		props, found, err := t.loadProps(nodeKey(h.label, h.value))
		if err != nil {
			return nil, err
		}
		if found {
			nodes = append(nodes, &Node{Label: h.label, Props: props})
		}
	}
	return nodes, nil
}

func (t *badgerTx) DeleteRelationships(ctx context.Context, ref Ref, relType string, dir Direction, label string) (int, error) {
	hops, err := t.hops(ref, relType, dir, label)
	if err != nil {
		return 0, err
	}
	for _, h := range hops {
		other := Ref{Label: h.label, Value: h.value}
		from, to := ref, other
		if dir == Incoming {
			from, to = other, ref
		}
		if err := t.txn.Delete(edgeKey(prefixOutgoing, from, relType, to)); err != nil {
			return 0, err
		}
		if err := t.txn.Delete(edgeKey(prefixIncoming, to, relType, from)); err != nil {
			return 0, err
		}
	}
	return len(hops), nil
}
