package datamodel

import (
	"fmt"
	"io/fs"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 32

// Loader returns the raw schema document of a data type.
type Loader interface {
	LoadSchema(dataTypeID string) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(dataTypeID string) ([]byte, error)

// LoadSchema implements Loader.
func (f LoaderFunc) LoadSchema(dataTypeID string) ([]byte, error) { return f(dataTypeID) }

// FSLoader reads "<dataTypeID>.schema.json" from fsys.
func FSLoader(fsys fs.FS) Loader {
	return LoaderFunc(func(dataTypeID string) ([]byte, error) {
		data, err := fs.ReadFile(fsys, dataTypeID+".schema.json")
		if err != nil {
			return nil, fmt.Errorf("datamodel: read schema %s: %w", dataTypeID, err)
		}
		return data, nil
	})
}

// Cache memoizes compiled validators per data type id.
type Cache struct {
	loader  Loader
	options []Option
	entries *lru.Cache[string, *Validator]
	mu      sync.Mutex
}

// NewCache builds a cache holding up to size validators (32 when size <= 0).
func NewCache(loader Loader, size int, options ...Option) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("datamodel: cache loader is nil")
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	entries, err := lru.New[string, *Validator](size)
	if err != nil {
		return nil, fmt.Errorf("datamodel: cache: %w", err)
	}
	return &Cache{loader: loader, options: options, entries: entries}, nil
}

// Get returns the validator for dataTypeID, compiling it on first use.
func (c *Cache) Get(dataTypeID string) (*Validator, error) {
	if v, ok := c.entries.Get(dataTypeID); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries.Get(dataTypeID); ok {
		return v, nil
	}
	data, err := c.loader.LoadSchema(dataTypeID)
	if err != nil {
		return nil, err
	}
	v, err := New(data, c.options...)
	if err != nil {
		return nil, fmt.Errorf("datamodel: compile %s: %w", dataTypeID, err)
	}
	c.entries.Add(dataTypeID, v)
	return v, nil
}

// Purge drops every cached validator.
func (c *Cache) Purge() { c.entries.Purge() }
