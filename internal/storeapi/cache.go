package storeapi

import (
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	keyFormConfig  = "form-config"
	keyPDFTemplate = "pdf-template"
)

func keyCalcSettings(vehicle string) string { return "calculator-settings/" + vehicle }

// docCache keeps decoded copies of rarely changing documents as JSON so
// callers always get a private value. A nil *docCache is a no-op.
type docCache struct {
	lru *expirable.LRU[string, []byte]
}

func newDocCache(size int, ttl time.Duration) *docCache {
	if size <= 0 {
		return nil
	}
	return &docCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *docCache) get(key string, out any) bool {
	if c == nil {
		return false
	}
	b, ok := c.lru.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

func (c *docCache) put(key string, v any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.lru.Add(key, b)
}

func (c *docCache) forget(key string) {
	if c == nil {
		return
	}
	c.lru.Remove(key)
}

func (c *docCache) purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
