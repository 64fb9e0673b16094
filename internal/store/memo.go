package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCacheMissForbidden is returned on a cache miss when the memo runs in
// cache-only mode. It signals a configuration violation: the wrapped external
// call would have been made but was forbidden.
var ErrCacheMissForbidden = eris.New("store: cache miss in cache-only mode")

// Memo is a write-once, read-many durable memoizer for a single operation.
// Keys are derived from the operation name and the serialized argument value,
// so structurally equal arguments hit the same entry across runs.
type Memo struct {
	store     *Store
	op        string
	cacheOnly bool
}

// NewMemo returns a memoizer namespaced under op. With cacheOnly set, misses
// fail with ErrCacheMissForbidden instead of invoking the computation.
func NewMemo(s *Store, op string, cacheOnly bool) *Memo {
	return &Memo{store: s, op: op, cacheOnly: cacheOnly}
}

// Key derives the deterministic cache key for args.
func (m *Memo) Key(args any) (string, error) {
	// encoding/json sorts map keys, so structurally equal values serialize
	// identically regardless of insertion order.
	data, err := json.Marshal(args)
	if err != nil {
		return "", eris.Wrapf(err, "store: marshal args for %s", m.op)
	}
	h := sha256.New()
	h.Write([]byte(m.op))
	h.Write([]byte{0})
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// GetOrCompute returns the cached result for args, computing and persisting it
// on a miss. Errors from compute are never cached, so a failed external call
// is retried on the next run.
func (m *Memo) GetOrCompute(ctx context.Context, args any, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	key, err := m.Key(args)
	if err != nil {
		return nil, err
	}

	var result []byte
	row := m.store.db.QueryRowContext(ctx,
		`SELECT result FROM memo WHERE op = ? AND args_hash = ?`, m.op, key)
	err = row.Scan(&result)
	if err == nil {
		zap.L().Debug("memo hit", zap.String("op", m.op), zap.String("key", key[:12]))
		return result, nil
	}
	if err != sql.ErrNoRows {
		return nil, eris.Wrapf(err, "store: memo lookup %s", m.op)
	}

	if m.cacheOnly {
		return nil, eris.Wrapf(ErrCacheMissForbidden, "op %s key %s", m.op, key[:12])
	}

	result, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	// Entries are immutable once written: a concurrent writer with the same
	// key computed the same value, so the first insert wins.
	_, err = m.store.db.ExecContext(ctx,
		`INSERT INTO memo (op, args_hash, result) VALUES (?, ?, ?)
		 ON CONFLICT (op, args_hash) DO NOTHING`,
		m.op, key, result)
	if err != nil {
		return nil, eris.Wrapf(err, "store: memo insert %s", m.op)
	}
	return result, nil
}

// Len reports the number of cached entries for this memo's operation.
func (m *Memo) Len(ctx context.Context) (int, error) {
	var n int
	err := m.store.db.QueryRowContext(ctx,
		`SELECT count(*) FROM memo WHERE op = ?`, m.op).Scan(&n)
	return n, eris.Wrapf(err, "store: memo count %s", m.op)
}
