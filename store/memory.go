package store

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps every collection in process memory for the lifetime of
// the process. Documents are held in their BSON form so that filters,
// updates and aggregations behave like the database.
//
// Each call is atomic, but a read followed by a write from a handler is not:
// concurrent read-modify-write sequences may interleave.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{name: name, docs: make(map[string]bson.M)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Mode() string                { return "memory" }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryCollection struct {
	name string
	mu   sync.RWMutex
	// order keeps insertion order so unsorted reads are deterministic.
	order []string
	docs  map[string]bson.M
}

func (c *memoryCollection) Find(_ context.Context, filter bson.M, opts FindOptions, results interface{}) error {
	resultsVal := reflect.ValueOf(results)
	if resultsVal.Kind() != reflect.Ptr || resultsVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("results argument must be a pointer to a slice, got %T", results)
	}

	matched, err := c.filtered(filter)
	if err != nil {
		return err
	}
	sortDocs(matched, opts.Sort)

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	sliceVal := resultsVal.Elem()
	elemType := sliceVal.Type().Elem()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(matched))
	for _, doc := range matched {
		elem := reflect.New(elemType)
		if err := decode(project(doc, opts.Projection), elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	sliceVal.Set(out)
	return nil
}

func (c *memoryCollection) FindOne(_ context.Context, filter bson.M, result interface{}) error {
	matched, err := c.filtered(filter)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return ErrNotFound
	}
	return decode(matched[0], result)
}

func (c *memoryCollection) Count(_ context.Context, filter bson.M) (int64, error) {
	matched, err := c.filtered(filter)
	return int64(len(matched)), err
}

func (c *memoryCollection) Insert(_ context.Context, doc interface{}) error {
	m, err := toDocument(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"]
	if !ok || id == nil {
		id = primitive.NewObjectID()
		m["_id"] = id
	}
	key := docKey(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[key]; exists {
		return fmt.Errorf("%w: %s in %s", ErrDuplicate, key, c.name)
	}
	c.docs[key] = m
	c.order = append(c.order, key)
	return nil
}

func (c *memoryCollection) Replace(_ context.Context, filter bson.M, doc interface{}) error {
	m, err := toDocument(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.firstMatch(filter)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrNotFound
	}
	m["_id"] = c.docs[key]["_id"]
	c.docs[key] = m
	return nil
}

func (c *memoryCollection) Update(_ context.Context, filter bson.M, update bson.M) (int64, error) {
	return c.update(filter, update, false)
}

func (c *memoryCollection) UpdateMany(_ context.Context, filter bson.M, update bson.M) (int64, error) {
	return c.update(filter, update, true)
}

func (c *memoryCollection) update(filter, update bson.M, many bool) (int64, error) {
	normalized, err := toDocument(update)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var matched int64
	for _, key := range c.order {
		doc := c.docs[key]
		ok, err := matches(doc, orEmpty(filter))
		if err != nil {
			return matched, err
		}
		if !ok {
			continue
		}
		if err := applyUpdate(doc, normalized); err != nil {
			return matched, err
		}
		matched++
		if !many {
			break
		}
	}
	return matched, nil
}

func (c *memoryCollection) Delete(_ context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, err := c.firstMatch(filter)
	if err != nil || key == "" {
		return 0, err
	}
	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (c *memoryCollection) GroupBy(_ context.Context, filter bson.M, field, sumField string) ([]Group, error) {
	matched, err := c.filtered(filter)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	groups := []Group{}
	for _, doc := range matched {
		key := lookup(doc, field)
		k := fmt.Sprint(key)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Count++
		if sumField != "" {
			if v, ok := toFloat(lookup(doc, sumField)); ok {
				groups[i].Sum += v
			}
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return fmt.Sprint(groups[i].Key) < fmt.Sprint(groups[j].Key)
	})
	return groups, nil
}

func (c *memoryCollection) Monthly(_ context.Context, filter bson.M, dateField, sumField string, limit int) ([]Month, error) {
	matched, err := c.filtered(filter)
	if err != nil {
		return nil, err
	}

	index := map[[2]int]int{}
	months := []Month{}
	for _, doc := range matched {
		ms, ok := toMillis(lookup(doc, dateField))
		if !ok {
			continue
		}
		t := time.UnixMilli(ms).UTC()
		k := [2]int{t.Year(), int(t.Month())}
		i, ok := index[k]
		if !ok {
			i = len(months)
			index[k] = i
			months = append(months, Month{Year: k[0], Month: k[1]})
		}
		months[i].Count++
		if sumField != "" {
			if v, ok := toFloat(lookup(doc, sumField)); ok {
				months[i].Sum += v
			}
		}
	}

	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year > months[j].Year
		}
		return months[i].Month > months[j].Month
	})
	if limit > 0 && len(months) > limit {
		months = months[:limit]
	}
	return months, nil
}

func (c *memoryCollection) Buckets(_ context.Context, filter bson.M, field string, boundaries []float64) ([]Bucket, error) {
	matched, err := c.filtered(filter)
	if err != nil {
		return nil, err
	}

	counts := make([]int64, len(boundaries))
	for _, doc := range matched {
		v, ok := toFloat(lookup(doc, field))
		if !ok {
			continue
		}
		for i := 0; i < len(boundaries)-1; i++ {
			if v >= boundaries[i] && v < boundaries[i+1] {
				counts[i]++
				break
			}
		}
	}

	buckets := []Bucket{}
	for i, n := range counts {
		if n == 0 || math.IsInf(boundaries[i], 0) {
			continue
		}
		buckets = append(buckets, Bucket{Min: boundaries[i], Max: upperBound(boundaries, boundaries[i]), Count: n})
	}
	return buckets, nil
}

func (c *memoryCollection) Sum(_ context.Context, filter bson.M, field string) (float64, error) {
	matched, err := c.filtered(filter)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, doc := range matched {
		if v, ok := toFloat(lookup(doc, field)); ok {
			total += v
		}
	}
	return total, nil
}

// filtered returns copies of the matching documents in insertion order.
func (c *memoryCollection) filtered(filter bson.M) ([]bson.M, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []bson.M
	for _, key := range c.order {
		doc := c.docs[key]
		ok, err := matches(doc, orEmpty(filter))
		if err != nil {
			return nil, err
		}
		if ok {
			clone, err := toDocument(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, clone)
		}
	}
	return out, nil
}

// firstMatch must be called with the write lock held.
func (c *memoryCollection) firstMatch(filter bson.M) (string, error) {
	for _, key := range c.order {
		ok, err := matches(c.docs[key], orEmpty(filter))
		if err != nil {
			return "", err
		}
		if ok {
			return key, nil
		}
	}
	return "", nil
}

func docKey(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}

// toDocument converts any BSON-marshalable value into a detached bson.M.
func toDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

func decode(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func applyUpdate(doc, update bson.M) error {
	for op, arg := range update {
		fields, ok := asMap(arg)
		if !ok {
			return fmt.Errorf("%s needs a document", op)
		}
		for path, value := range fields {
			parent, leaf := walk(doc, path)
			switch op {
			case "$set":
				parent[leaf] = value
			case "$unset":
				delete(parent, leaf)
			case "$inc":
				parent[leaf] = addNumbers(parent[leaf], value)
			case "$push":
				list, _ := asList(parent[leaf])
				parent[leaf] = append(bson.A(append([]interface{}{}, list...)), value)
			default:
				return fmt.Errorf("unsupported update operator %s", op)
			}
		}
	}
	return nil
}

// walk returns the map holding the last segment of path, creating
// intermediate documents as needed.
func walk(doc bson.M, path string) (bson.M, string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(current[part])
		if !ok {
			next = bson.M{}
			current[part] = next
		}
		current = next
	}
	return current, parts[len(parts)-1]
}

func addNumbers(current, delta interface{}) interface{} {
	switch c := current.(type) {
	case nil:
		return delta
	case int32, int64, int:
		ci, _ := toFloat(c)
		switch d := delta.(type) {
		case int32:
			return int64(ci) + int64(d)
		case int64:
			return int64(ci) + d
		case int:
			return int64(ci) + int64(d)
		}
	}
	a, _ := toFloat(current)
	b, _ := toFloat(delta)
	return a + b
}
