package db

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. Documents go through a bson round trip on
// the way in and out, so stored values look exactly like what the Mongo
// driver would hand back. It supports the subset of the query language the
// services use and can be told to fail specific operations.
type Memory struct {
	mu       sync.RWMutex
	colls    map[string]*memColl
	failures map[string]error
}

type memColl struct {
	docs  map[string]bson.M
	order []string
}

// Operation names accepted by FailOn.
const (
	OpInsert     = "insert"
	OpInsertMany = "insertMany"
	OpFind       = "find"
	OpFindOne    = "findOne"
	OpUpdate     = "update"
	OpDelete     = "delete"
)

func NewMemory() *Memory {
	return &Memory{
		colls:    make(map[string]*memColl),
		failures: make(map[string]error),
	}
}

// FailOn makes every op on coll return err until Recover is called.
func (m *Memory) FailOn(op, coll string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+coll] = err
}

// Recover clears all injected failures.
func (m *Memory) Recover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]error)
}

// Count returns the number of documents in coll.
func (m *Memory) Count(coll string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.colls[coll]; ok {
		return len(c.order)
	}
	return 0
}

func (m *Memory) failure(op, coll string) error {
	return m.failures[op+":"+coll]
}

// peek returns coll without creating it; callers holding only the read
// lock must use it instead of coll.
func (m *Memory) peek(name string) *memColl {
	if c, ok := m.colls[name]; ok {
		return c
	}
	return &memColl{}
}

func (m *Memory) coll(name string) *memColl {
	c, ok := m.colls[name]
	if !ok {
		c = &memColl{docs: make(map[string]bson.M)}
		m.colls[name] = c
	}
	return c
}

func (c *memColl) remove(id string) {
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func toDoc(v any) (bson.M, string, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("unmarshal document: %w", err)
	}
	id, ok := doc["_id"].(string)
	if !ok || id == "" {
		return nil, "", fmt.Errorf("document needs a string _id")
	}
	return doc, id, nil
}

// normValue converts a Go value into the form bson decoding produces.
func normValue(v any) any {
	data, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var out bson.M
	if err := bson.Unmarshal(data, &out); err != nil {
		return v
	}
	return out["v"]
}

func decode(doc bson.M, out any) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

func (m *Memory) InsertOne(ctx context.Context, coll string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpInsert, coll); err != nil {
		return err
	}
	d, id, err := toDoc(doc)
	if err != nil {
		return err
	}
	c := m.coll(coll)
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, coll, id)
	}
	c.docs[id] = d
	c.order = append(c.order, id)
	return nil
}

func (m *Memory) InsertMany(ctx context.Context, coll string, docs []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpInsertMany, coll); err != nil {
		return err
	}
	c := m.coll(coll)
	staged := make([]bson.M, 0, len(docs))
	ids := make([]string, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		d, id, err := toDoc(doc)
		if err != nil {
			return err
		}
		if _, exists := c.docs[id]; exists || seen[id] {
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, coll, id)
		}
		seen[id] = true
		staged = append(staged, d)
		ids = append(ids, id)
	}
	for i, id := range ids {
		c.docs[id] = staged[i]
		c.order = append(c.order, id)
	}
	return nil
}

func (m *Memory) FindOne(ctx context.Context, coll string, filter bson.M, out any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(OpFindOne, coll); err != nil {
		return err
	}
	c := m.peek(coll)
	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, filter) {
			return decode(doc, out)
		}
	}
	return ErrNotFound
}

func (m *Memory) Find(ctx context.Context, coll string, filter bson.M, opts FindOptions, out any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure(OpFind, coll); err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find: out must be a pointer to a slice, got %T", out)
	}

	c := m.peek(coll)
	var hits []bson.M
	for _, id := range c.order {
		if doc := c.docs[id]; matches(doc, filter) {
			hits = append(hits, doc)
		}
	}
	if opts.SortField != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			cmp := compareValues(hits[i][opts.SortField], hits[j][opts.SortField])
			if opts.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(hits)) {
			hits = nil
		} else {
			hits = hits[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(hits)) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	slice := rv.Elem()
	result := reflect.MakeSlice(slice.Type(), 0, len(hits))
	for _, doc := range hits {
		ptr := reflect.New(slice.Type().Elem())
		if err := decode(doc, ptr.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, ptr.Elem())
	}
	slice.Set(result)
	return nil
}

func (m *Memory) UpdateOne(ctx context.Context, coll string, filter bson.M, update bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpUpdate, coll); err != nil {
		return 0, err
	}
	c := m.coll(coll)
	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, filter) {
			continue
		}
		if err := applyUpdate(doc, update); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, nil
}

func (m *Memory) DeleteOne(ctx context.Context, coll string, filter bson.M) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(OpDelete, coll); err != nil {
		return 0, err
	}
	c := m.coll(coll)
	for _, id := range c.order {
		if matches(c.docs[id], filter) {
			c.remove(id)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func applyUpdate(doc bson.M, update bson.M) error {
	for op, raw := range update {
		fields, ok := raw.(bson.M)
		if !ok {
			return fmt.Errorf("update operator %s needs a document", op)
		}
		for k, v := range fields {
			if k == "_id" {
				continue
			}
			switch op {
			case "$set":
				doc[k] = normValue(v)
			case "$push":
				arr, _ := doc[k].(bson.A)
				doc[k] = append(arr, normValue(v))
			case "$inc":
				doc[k] = addNumbers(doc[k], normValue(v))
			default:
				return fmt.Errorf("unsupported update operator %s", op)
			}
		}
	}
	return nil
}

func addNumbers(a, b any) any {
	ai, aInt := asInt(a)
	bi, bInt := asInt(b)
	if (aInt || a == nil) && bInt {
		return ai + bi
	}
	af, _ := asFloat(a)
	bf, _ := asFloat(b)
	return af + bf
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case primitive.DateTime:
		return float64(n), true
	}
	return 0, false
}

func matches(doc bson.M, filter bson.M) bool {
	for k, want := range filter {
		got, present := doc[k]
		if ops, ok := want.(bson.M); ok && isOperatorDoc(ops) {
			for op, arg := range ops {
				if !applyOp(op, got, present, arg) {
					return false
				}
			}
			continue
		}
		if !present {
			if want == nil {
				continue
			}
			return false
		}
		if !equalValues(got, normValue(want)) {
			return false
		}
	}
	return true
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return len(m) > 0
}

func applyOp(op string, got any, present bool, arg any) bool {
	switch op {
	case "$eq":
		return present && equalValues(got, normValue(arg))
	case "$ne":
		return !present || !equalValues(got, normValue(arg))
	case "$exists":
		want, _ := arg.(bool)
		return present == want
	case "$gt":
		return present && compareValues(got, normValue(arg)) > 0
	case "$gte":
		return present && compareValues(got, normValue(arg)) >= 0
	case "$lt":
		return present && compareValues(got, normValue(arg)) < 0
	case "$lte":
		return present && compareValues(got, normValue(arg)) <= 0
	case "$in":
		rv := reflect.ValueOf(arg)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if present && equalValues(got, normValue(rv.Index(i).Interface())) {
				return true
			}
		}
		return false
	}
	return false
}

func equalValues(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders numbers, dates and strings; nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
