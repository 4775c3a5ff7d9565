package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for a JSON document type
// stored under a single key prefix, with optional unique secondary indexes.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithIndexTransform adds a secondary index with lookup transformation.
// The lookupTransform function is applied to search values before index lookup,
// enabling case-insensitive searches, normalization, etc.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetMany retrieves the entities that exist among ids in one read transaction.
// Missing ids are absent from the result map.
func (e *Entity[T]) GetMany(ctx context.Context, ids []string) (map[string]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := make(map[string]*T, len(ids))
	err := e.store.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			entity, err := e.read(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found[id] = entity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// GetByIndex retrieves an entity by secondary index.
// If the index has a lookup transform, it will be applied to the value before lookup.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err = e.read(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Exists reports whether an entity with id exists.
func (e *Entity[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.store.exists([]byte(e.prefix + id))
}

// Put creates or replaces the entity, moving its index entries.
// Returns ErrAlreadyExists if an index value belongs to another entity.
func (e *Entity[T]) Put(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.read(txn, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		for _, idx := range e.indexes {
			keep := make(map[string]bool)
			for _, v := range idx.keyGen(entity) {
				keep[v] = true
			}

			if old != nil {
				for _, v := range idx.keyGen(old) {
					if keep[v] {
						continue
					}
					if err := txn.Delete(e.indexKey(idx.name, v)); err != nil {
						return fmt.Errorf("failed to delete old index key: %w", err)
					}
				}
			}

			for v := range keep {
				key := e.indexKey(idx.name, v)
				item, err := txn.Get(key)
				if err == nil {
					owner, verr := item.ValueCopy(nil)
					if verr != nil {
						return verr
					}
					if string(owner) != id {
						return fmt.Errorf("index %s conflict on key %s: %w", idx.name, v, ErrAlreadyExists)
					}
					continue
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("failed to check index key: %w", err)
				}
				if err := txn.Set(key, []byte(id)); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}

		if err := txn.Set([]byte(e.prefix+id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return nil
	})
}

// Delete deletes an entity by ID together with its index entries.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		entity, err := e.read(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, idx := range e.indexes {
			for _, v := range idx.keyGen(entity) {
				if err := txn.Delete(e.indexKey(idx.name, v)); err != nil {
					return fmt.Errorf("failed to delete index key: %w", err)
				}
			}
		}

		if err := txn.Delete([]byte(e.prefix + id)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get([]byte(e.prefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
