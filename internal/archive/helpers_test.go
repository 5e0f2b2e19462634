package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type point struct {
	X float64
	Y float64
}

type pin struct {
	Base
	Label string
	At    point
	Tags  []string
	Data  []byte
	Count int64
	Flag  bool
}

func (p *pin) EncodeArchive(enc *Encoder) error {
	enc.Put("label", p.Label)
	enc.Put("at", p.At)
	enc.Put("tags", p.Tags)
	enc.Put("data", p.Data)
	enc.Put("count", p.Count)
	enc.Put("flag", p.Flag)
	return nil
}

func (p *pin) DecodeArchive(dec *Decoder) error {
	p.Label = dec.String("label")
	dec.Value("at", &p.At)
	dec.Value("tags", &p.Tags)
	p.Data = dec.Bytes("data")
	p.Count = dec.Int("count")
	p.Flag = dec.Bool("flag")
	return dec.Err()
}

type board struct {
	Base
	Title  string
	Pins   []*pin
	Main   *pin
	Refs   References[*pin]
	Parent *board
}

func (b *board) EncodeArchive(enc *Encoder) error {
	enc.Put("title", b.Title)
	PutList(enc, "pins", b.Pins)
	enc.PutObject("main", b.Main)
	PutReferences(enc, "refs", b.Refs)
	enc.PutObject("parent", b.Parent)
	return nil
}

func (b *board) DecodeArchive(dec *Decoder) error {
	dec.Require("title")
	b.Title = dec.String("title")
	b.Pins = DecodeList[*pin](dec, "pins")
	if obj := dec.Object("main"); obj != nil {
		p, ok := obj.(*pin)
		if !ok {
			return fmt.Errorf("main: %w: %T", ErrWrongType, obj)
		}
		b.Main = p
	}
	b.Refs = DecodeReferences[*pin](dec, "refs")
	if obj := dec.Object("parent"); obj != nil {
		b.Parent, _ = obj.(*board)
	}
	return dec.Err()
}

var errBroken = errors.New("broken on purpose")

// broken decodes its child, then fails when its "fail" field is set.
type broken struct {
	Base
	Child *pin
	Fail  bool
}

func (b *broken) EncodeArchive(enc *Encoder) error {
	enc.PutObject("child", b.Child)
	enc.Put("fail", b.Fail)
	return nil
}

func (b *broken) DecodeArchive(dec *Decoder) error {
	if obj := dec.Object("child"); obj != nil {
		b.Child = obj.(*pin)
	}
	if dec.Bool("fail") {
		return errBroken
	}
	return dec.Err()
}

// noted records that its deferred decode work ran.
type noted struct {
	Base
	Fail bool
	Done bool
}

func (n *noted) EncodeArchive(enc *Encoder) error {
	enc.Put("fail", n.Fail)
	return nil
}

func (n *noted) DecodeArchive(dec *Decoder) error {
	n.Fail = dec.Bool("fail")
	dec.AfterDecode(func(context.Context) error {
		n.Done = true
		return nil
	})
	if n.Fail {
		return errBroken
	}
	return dec.Err()
}

func testRegistry() *Registry {
	reg := NewRegistry()
	Register(reg, "pin", func() *pin { return &pin{} })
	Register(reg, "board", func() *board { return &board{} })
	Register(reg, "broken", func() *broken { return &broken{} })
	Register(reg, "noted", func() *noted { return &noted{} })
	return reg
}

// memStore is an in-memory Store with an identity cache.
type memStore struct {
	reg    *Registry
	logger *slog.Logger
	next   ID
	rows   map[ID][]byte
	refs   map[ID]int64
	cache  map[ID]Object
}

func newMemStore(reg *Registry) *memStore {
	return &memStore{
		reg:   reg,
		rows:  make(map[ID][]byte),
		refs:  make(map[ID]int64),
		cache: make(map[ID]Object),
	}
}

func (s *memStore) Logger() *slog.Logger { return s.logger }

func (s *memStore) Insert(ctx context.Context, obj Object) error {
	data, err := Marshal(ctx, s, s.reg, obj)
	if err != nil {
		return err
	}
	s.next++
	id := s.next
	s.rows[id] = data
	s.refs[id] = 1
	obj.ObjectBase().Bind(id, s)
	s.cache[id] = obj
	return nil
}

func (s *memStore) Save(ctx context.Context, obj Object) error {
	b := obj.ObjectBase()
	if b.Store() != Store(s) || !b.ID().Valid() {
		return s.Insert(ctx, obj)
	}
	data, err := Marshal(ctx, s, s.reg, obj)
	if err != nil {
		return err
	}
	s.rows[b.ID()] = data
	return nil
}

func (s *memStore) RefcountOf(_ context.Context, id ID) (int64, error) {
	n, ok := s.refs[id]
	if !ok {
		return 0, fmt.Errorf("no object %d", id)
	}
	return n, nil
}

func (s *memStore) KeepIDs(_ context.Context, ids ...ID) error {
	for _, id := range ids {
		s.refs[id]++
	}
	return nil
}

func (s *memStore) WasteIDs(_ context.Context, ids ...ID) error {
	for _, id := range ids {
		s.refs[id] = max(s.refs[id]-1, 0)
	}
	return nil
}

func (s *memStore) ReadArchive(_ context.Context, id ID) ([]byte, bool, error) {
	data, ok := s.rows[id]
	return data, ok, nil
}

func (s *memStore) Lookup(id ID) (Object, bool) {
	obj, ok := s.cache[id]
	return obj, ok
}

// load returns the cached instance for id or decodes its row.
func (s *memStore) load(ctx context.Context, id ID) (Object, error) {
	if obj, ok := s.cache[id]; ok {
		return obj, nil
	}
	data, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("no object %d", id)
	}
	root, fresh, err := Unmarshal(ctx, s, s.reg, data, id)
	if err != nil {
		return nil, err
	}
	for _, obj := range fresh {
		s.cache[obj.ObjectBase().ID()] = obj
	}
	return root, nil
}

func (s *memStore) forgetAll() {
	s.cache = make(map[ID]Object)
}
