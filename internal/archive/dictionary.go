package archive

import (
	"context"
	"sort"
)

// DictionaryTag is the registry tag of Dictionary.
const DictionaryTag = "Dictionary"

// Dictionary is a persistable string-keyed map of plain values.
// The zero value is an empty, unbound dictionary ready to use.
type Dictionary struct {
	Base
	entries map[string]any
}

// NewDictionary returns an empty, unbound dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]any)}
}

// CreateDictionary returns an empty dictionary inserted into store.
func CreateDictionary(ctx context.Context, store Store) (*Dictionary, error) {
	d := NewDictionary()
	if err := store.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Set stores v under key. Integers are widened to int64 so values read
// back compare equal to what was set.
func (d *Dictionary) Set(key string, v any) {
	if d.entries == nil {
		d.entries = make(map[string]any)
	}
	d.entries[key] = plain(v)
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key string) (any, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Delete removes key.
func (d *Dictionary) Delete(key string) { delete(d.entries, key) }

// Keys returns the keys in sorted order.
func (d *Dictionary) Keys() []string {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

func (d *Dictionary) EncodeArchive(enc *Encoder) error {
	entries := d.entries
	if entries == nil {
		entries = map[string]any{}
	}
	enc.Put("entries", entries)
	return nil
}

func (d *Dictionary) DecodeArchive(dec *Decoder) error {
	var entries map[string]any
	dec.Value("entries", &entries)
	d.entries = make(map[string]any, len(entries))
	for k, v := range entries {
		d.entries[k] = plain(v)
	}
	return dec.Err()
}
