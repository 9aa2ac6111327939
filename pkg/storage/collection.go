package storage

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

// Collection stores entities of type T under the collection name of T's
// class model. T must be a registered entity type with an identifier field.
type Collection[T any] struct {
	store *Store
	codec *codec.EntityCodec
	name  string
}

// NewCollection returns the collection of T in store.
func NewCollection[T any](store *Store) (*Collection[T], error) {
	t := reflect.TypeFor[T]()
	c, err := store.registry.Lookup(t)
	if err != nil {
		return nil, fmt.Errorf("failed to find codec for %s: %w", t, err)
	}
	ec, ok := c.(*codec.EntityCodec)
	if !ok {
		return nil, fmt.Errorf("%s is not an entity type, its codec is %v", t, c)
	}
	model := ec.ClassModel()
	if model.IDField() == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoID, model)
	}
	return &Collection[T]{store: store, codec: ec, name: model.CollectionName()}, nil
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Insert assigns an identifier to entity if it has none and stores it. It
// fails with ErrExists when a document with the same identifier is stored.
func (c *Collection[T]) Insert(entity *T) (err error) {
	defer c.record("insert", time.Now(), &err)

	if err := c.codec.EnsureIdentifier(entity); err != nil {
		return err
	}
	key, doc, err := c.encode(entity)
	if err != nil {
		return err
	}

	unlock, err := c.store.lock()
	if err != nil {
		return err
	}
	defer unlock()

	exists, err := c.store.exists(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrExists
	}
	return c.put(key, doc)
}

// Replace overwrites the stored document of entity. It fails with ErrNoID
// when entity has no identifier and ErrNotFound when nothing is stored
// under it.
func (c *Collection[T]) Replace(entity *T) (err error) {
	defer c.record("replace", time.Now(), &err)

	has, err := c.codec.HasIdentifier(entity)
	if err != nil {
		return err
	}
	if !has {
		return ErrNoID
	}
	key, doc, err := c.encode(entity)
	if err != nil {
		return err
	}

	unlock, err := c.store.lock()
	if err != nil {
		return err
	}
	defer unlock()

	exists, err := c.store.exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return c.put(key, doc)
}

// Upsert stores entity, assigning an identifier first if it has none.
func (c *Collection[T]) Upsert(entity *T) (err error) {
	defer c.record("upsert", time.Now(), &err)

	if err := c.codec.EnsureIdentifier(entity); err != nil {
		return err
	}
	key, doc, err := c.encode(entity)
	if err != nil {
		return err
	}

	unlock, err := c.store.lock()
	if err != nil {
		return err
	}
	defer unlock()
	return c.put(key, doc)
}

// Get returns the entity stored under id. id may be a value of the
// identifier field's type or a generated id convertible to it.
func (c *Collection[T]) Get(id any) (_ *T, err error) {
	defer c.record("get", time.Now(), &err)

	key, err := c.key(id)
	if err != nil {
		return nil, err
	}
	unlock, err := c.store.rlock()
	if err != nil {
		return nil, err
	}
	doc, err := c.store.get(key)
	unlock()
	if err != nil {
		return nil, err
	}
	return c.decode(doc)
}

// Delete removes the entity stored under id, failing with ErrNotFound if
// there is none.
func (c *Collection[T]) Delete(id any) (err error) {
	defer c.record("delete", time.Now(), &err)

	key, err := c.key(id)
	if err != nil {
		return err
	}

	unlock, err := c.store.lock()
	if err != nil {
		return err
	}
	defer unlock()

	exists, err := c.store.exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return c.store.delete(key)
}

// All returns every entity of the collection in key order.
func (c *Collection[T]) All() (_ []*T, err error) {
	defer c.record("scan", time.Now(), &err)

	var entities []*T
	err = c.store.ScanRaw(c.name, func(_ document.RawValue, doc document.Raw) error {
		entity, err := c.decode(doc)
		if err != nil {
			return err
		}
		entities = append(entities, entity)
		return nil
	})
	return entities, err
}

// Count returns the number of stored entities.
func (c *Collection[T]) Count() (int, error) {
	n := 0
	err := c.store.ScanRaw(c.name, func(document.RawValue, document.Raw) error {
		n++
		return nil
	})
	return n, err
}

func (c *Collection[T]) key(id any) ([]byte, error) {
	value, err := c.codec.EncodeIdentifier(id)
	if err != nil {
		return nil, err
	}
	return documentKey(c.name, value), nil
}

func (c *Collection[T]) encode(entity *T) ([]byte, document.Raw, error) {
	id, err := c.codec.IdentifierValue(entity)
	if err != nil {
		return nil, nil, err
	}
	doc, err := c.codec.Marshal(entity)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}
	return documentKey(c.name, id), doc, nil
}

func (c *Collection[T]) decode(doc document.Raw) (*T, error) {
	v, err := c.codec.Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	switch entity := v.(type) {
	case *T:
		return entity, nil
	case T:
		return &entity, nil
	}
	return nil, fmt.Errorf("%s document decoded to %T", c.name, v)
}

func (c *Collection[T]) put(key []byte, doc document.Raw) error {
	if err := c.store.put(key, doc); err != nil {
		return err
	}
	c.store.metrics.RecordDocumentSize(c.name, len(doc))
	return nil
}

func (c *Collection[T]) record(operation string, start time.Time, err *error) {
	c.store.metrics.RecordOperation(c.name, operation, start, *err)
	if *err != nil {
		c.store.logger.Debug("storage operation failed", "collection", c.name, "operation", operation, "error", *err)
	}
}
