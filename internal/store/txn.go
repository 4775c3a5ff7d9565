package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpKind is the kind of a transaction op.
type OpKind int

const (
	// OpPut writes the item unconditionally.
	OpPut OpKind = iota
	// OpPutIfAbsent writes the item only if the key does not exist.
	OpPutIfAbsent
	// OpDelete removes the item. Deleting an absent item succeeds.
	OpDelete
	// OpDeleteIfExists removes the item and fails if it does not exist.
	OpDeleteIfExists
	// OpCheckAbsent writes nothing and fails if the key exists.
	OpCheckAbsent
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpPutIfAbsent:
		return "put_if_absent"
	case OpDelete:
		return "delete"
	case OpDeleteIfExists:
		return "delete_if_exists"
	case OpCheckAbsent:
		return "check_absent"
	default:
		return "unknown"
	}
}

// TxnOp is one step of a Transact call.
// Index keys are written (puts) or removed (deletes) together with Key.
type TxnOp struct {
	Kind    OpKind
	Key     []byte
	Value   any
	Indexes [][]byte
}

// Transact applies ops atomically: either every op takes effect or none does.
//
// Conditions are evaluated in order. The first failing condition aborts the
// transaction with a *TxnCanceledError naming that op; it matches
// ErrConditionFailed. If another transaction commits a conflicting write
// first, ErrTxnConflict is returned and nothing was written.
func (s *Store) Transact(ctx context.Context, ops ...TxnOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	payloads := make([][]byte, len(ops))
	for i, op := range ops {
		if op.Kind != OpPut && op.Kind != OpPutIfAbsent {
			continue
		}
		data, err := json.Marshal(op.Value)
		if err != nil {
			return fmt.Errorf("marshal op %d: %w", i, err)
		}
		payloads[i] = data
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, op := range ops {
			if err := applyOp(txn, i, op, payloads[i]); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrTxnConflict, err)
	}
	return err
}

func applyOp(txn *badger.Txn, i int, op TxnOp, payload []byte) error {
	switch op.Kind {
	case OpPutIfAbsent, OpCheckAbsent:
		found, err := keyExists(txn, op.Key)
		if err != nil {
			return err
		}
		if found {
			return &TxnCanceledError{Index: i, Kind: op.Kind, Key: string(op.Key)}
		}
	case OpDeleteIfExists:
		found, err := keyExists(txn, op.Key)
		if err != nil {
			return err
		}
		if !found {
			return &TxnCanceledError{Index: i, Kind: op.Kind, Key: string(op.Key)}
		}
	}

	switch op.Kind {
	case OpPut, OpPutIfAbsent:
		if err := txn.Set(op.Key, payload); err != nil {
			return fmt.Errorf("set %q: %w", op.Key, err)
		}
		for _, idx := range op.Indexes {
			if err := txn.Set(idx, []byte{}); err != nil {
				return fmt.Errorf("set index %q: %w", idx, err)
			}
		}
	case OpDelete, OpDeleteIfExists:
		if err := txn.Delete(op.Key); err != nil {
			return fmt.Errorf("delete %q: %w", op.Key, err)
		}
		for _, idx := range op.Indexes {
			if err := txn.Delete(idx); err != nil {
				return fmt.Errorf("delete index %q: %w", idx, err)
			}
		}
	}
	return nil
}

// keyExists reads key inside txn so the read participates in conflict detection.
func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("read %q: %w", key, err)
}
