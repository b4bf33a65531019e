package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates the subset of the MongoDB query language produced by the
// query package and the handlers: $and, $or, $nor, $eq, $ne, $gt, $gte, $lt,
// $lte, $in, $nin, $regex, $exists, plus implicit equality and regex values.
// Paths are dotted and fan out over arrays the way the server does.
func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		ok, err := matchKey(doc, key, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchKey(doc bson.M, key string, cond interface{}) (bool, error) {
	switch key {
	case "$and", "$or", "$nor":
		subs, err := subFilters(cond)
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		return matchLogical(doc, key, subs)
	}
	if strings.HasPrefix(key, "$") {
		return false, fmt.Errorf("unsupported top-level operator %s", key)
	}

	values := resolve(doc, strings.Split(key, "."))
	if ops, ok := operatorDoc(cond); ok {
		for op, arg := range ops {
			if op == "$options" {
				continue
			}
			ok, err := matchOperator(values, op, arg, ops["$options"])
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return anyEqual(values, cond)
}

func matchLogical(doc bson.M, op string, subs []bson.M) (bool, error) {
	for _, sub := range subs {
		ok, err := matches(doc, sub)
		if err != nil {
			return false, err
		}
		switch op {
		case "$and":
			if !ok {
				return false, nil
			}
		case "$or":
			if ok {
				return true, nil
			}
		case "$nor":
			if ok {
				return false, nil
			}
		}
	}
	return op != "$or", nil
}

func subFilters(v interface{}) ([]bson.M, error) {
	switch list := v.(type) {
	case []bson.M:
		return list, nil
	case bson.A:
		return toFilters(list)
	case []interface{}:
		return toFilters(list)
	}
	return nil, fmt.Errorf("expected an array of filters, got %T", v)
}

func toFilters(list []interface{}) ([]bson.M, error) {
	out := make([]bson.M, 0, len(list))
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("expected a filter document, got %T", item)
		}
		out = append(out, m)
	}
	return out, nil
}

// operatorDoc reports whether cond is a document of $-operators.
func operatorDoc(cond interface{}) (bson.M, bool) {
	m, ok := asMap(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchOperator(values []interface{}, op string, arg, options interface{}) (bool, error) {
	switch op {
	case "$eq":
		return anyEqual(values, arg)
	case "$ne":
		ok, err := anyEqual(values, arg)
		return !ok, err
	case "$gt", "$gte", "$lt", "$lte":
		for _, v := range values {
			c, ok := compare(v, arg)
			if !ok {
				continue
			}
			if (op == "$gt" && c > 0) || (op == "$gte" && c >= 0) || (op == "$lt" && c < 0) || (op == "$lte" && c <= 0) {
				return true, nil
			}
		}
		return false, nil
	case "$in", "$nin":
		list, ok := asList(arg)
		if !ok {
			return false, fmt.Errorf("%s needs an array", op)
		}
		found := false
		for _, candidate := range list {
			ok, err := anyEqual(values, candidate)
			if err != nil {
				return false, err
			}
			if ok {
				found = true
				break
			}
		}
		if op == "$nin" {
			return !found, nil
		}
		return found, nil
	case "$regex":
		re, err := toRegexp(arg, options)
		if err != nil {
			return false, err
		}
		for _, v := range values {
			if s, ok := v.(string); ok && re.MatchString(s) {
				return true, nil
			}
		}
		return false, nil
	case "$exists":
		want, _ := arg.(bool)
		present := false
		for _, v := range values {
			if v != nil {
				present = true
				break
			}
		}
		return present == want, nil
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}

func anyEqual(values []interface{}, target interface{}) (bool, error) {
	if re, ok := target.(primitive.Regex); ok {
		return matchOperator(values, "$regex", re, nil)
	}
	if target == nil && len(values) == 0 {
		return true, nil
	}
	for _, v := range values {
		if equal(v, target) {
			return true, nil
		}
	}
	return false, nil
}

func toRegexp(arg, options interface{}) (*regexp.Regexp, error) {
	var pattern, flags string
	switch re := arg.(type) {
	case primitive.Regex:
		pattern, flags = re.Pattern, re.Options
	case string:
		pattern = re
	default:
		return nil, fmt.Errorf("$regex needs a pattern, got %T", arg)
	}
	if opts, ok := options.(string); ok {
		flags += opts
	}
	if strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// resolve returns every value reachable at path. Arrays along the way are
// traversed element by element; an array at the leaf contributes both
// itself and its elements.
func resolve(v interface{}, path []string) []interface{} {
	if len(path) == 0 {
		if list, ok := asList(v); ok {
			out := []interface{}{v}
			return append(out, list...)
		}
		return []interface{}{v}
	}
	if m, ok := asMap(v); ok {
		child, present := m[path[0]]
		if !present {
			return nil
		}
		return resolve(child, path[1:])
	}
	if list, ok := asList(v); ok {
		var out []interface{}
		for _, item := range list {
			out = append(out, resolve(item, path)...)
		}
		return out
	}
	return nil
}

func lookup(doc bson.M, path string) interface{} {
	values := resolve(doc, strings.Split(path, "."))
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch list := v.(type) {
	case bson.A:
		return list, true
	case []interface{}:
		return list, true
	case []string:
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case []bson.M:
		out := make([]interface{}, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(list))
		for i, f := range list {
			out[i] = f
		}
		return out, true
	case []primitive.ObjectID:
		out := make([]interface{}, len(list))
		for i, id := range list {
			out[i] = id
		}
		return out, true
	}
	return nil, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toMillis(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return int64(t), true
	case time.Time:
		return t.UnixMilli(), true
	case *time.Time:
		if t == nil {
			return 0, false
		}
		return t.UnixMilli(), true
	}
	return 0, false
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := toMillis(a); ok {
		tb, ok := toMillis(b)
		return ok && ta == tb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case primitive.ObjectID:
		switch bv := b.(type) {
		case primitive.ObjectID:
			return av == bv
		case *primitive.ObjectID:
			return bv != nil && av == *bv
		}
		return false
	}
	return false
}

// compare orders values of the same class. ok is false when the classes differ.
func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmpFloat(fa, fb), true
	}
	if ta, ok := toMillis(a); ok {
		tb, ok := toMillis(b)
		if !ok {
			return 0, false
		}
		return cmpFloat(float64(ta), float64(tb)), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ia, ok := a.(primitive.ObjectID); ok {
		ib, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(ia.Hex(), ib.Hex()), true
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// typeRank follows the server's cross-type sort order for the types stored
// here.
func typeRank(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bson.M, map[string]interface{}, bson.D:
		return 3
	case bson.A, []interface{}:
		return 4
	case primitive.ObjectID:
		return 5
	case bool:
		return 6
	case primitive.DateTime, time.Time:
		return 7
	}
	return 8
}

func sortDocs(docs []bson.M, order bson.D) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range order {
			a, b := lookup(docs[i], key.Key), lookup(docs[j], key.Key)
			c, ok := compare(a, b)
			if !ok {
				c = typeRank(a) - typeRank(b)
			}
			if c == 0 {
				continue
			}
			if dir, _ := toFloat(key.Value); dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// project keeps _id and the top-level fields named in an inclusion projection.
func project(doc bson.M, projection bson.M) bson.M {
	if len(projection) == 0 {
		return doc
	}
	out := bson.M{"_id": doc["_id"]}
	for path := range projection {
		top := strings.SplitN(path, ".", 2)[0]
		if v, ok := doc[top]; ok {
			out[top] = v
		}
	}
	return out
}
