// Package query turns list-endpoint query strings into a store filter, sort,
// projection and page window.
//
// Parameters follow the bracket convention used by the frontend:
//
//	?price[gte]=100000&price[lte]=250000&propertyType=house&search=lake&sort=-price,title&page=2
//
// select, sort, page, limit and search are reserved. Every other parameter
// becomes one clause of a top-level $and, together with the caller's scope
// and the search $or.
package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxLimit = 100

var reserved = map[string]bool{
	"select": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
	"search": true,
}

var operatorMap = map[string]string{
	"eq":  "$eq",
	"ne":  "$ne",
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
	"in":  "$in",
}

type FieldType int

const (
	String FieldType = iota
	// Categorical strings match case-insensitively.
	Categorical
	Number
	Bool
	Date
	ObjectID
	// Prefix strings match from the start of the stored value.
	Prefix
	// Tags are string arrays; a comma list matches documents carrying any
	// tag containing one of the terms.
	Tags
)

// Shorthand maps a convenience parameter onto an operator on a stored field,
// e.g. minPrice -> price $gte.
type Shorthand struct {
	Field    string
	Operator string
}

// EntitySpec describes how one entity's list endpoint reads its parameters.
type EntitySpec struct {
	DefaultLimit int
	SearchFields []string
	// Aliases rename a parameter onto a stored path, e.g. city -> address.city.
	Aliases    map[string]string
	Fields     map[string]FieldType
	Shorthands map[string]Shorthand
	// AnyOf expands one parameter into a case-insensitive $or over several
	// paths, e.g. location -> city, state or street.
	AnyOf map[string][]string
}

func (s EntitySpec) path(name string) string {
	if alias, ok := s.Aliases[name]; ok {
		return alias
	}
	return name
}

func (s EntitySpec) fieldType(path string) FieldType {
	return s.Fields[path]
}

// Plan is the translated form of one list request.
type Plan struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Page       int
	Limit      int
}

// Skip is the number of matching documents before this page.
func (p *Plan) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Translate builds a Plan. scope, when non-empty, is added as the first
// clause of the $and so that user parameters can only narrow it.
func Translate(params url.Values, spec EntitySpec, scope bson.M) *Plan {
	var andConditions []bson.M
	if len(scope) > 0 {
		andConditions = append(andConditions, scope)
	}

	fieldConditions := make(map[string]bson.M)
	var fieldOrder []string
	addCondition := func(path, operator string, value interface{}) {
		if _, ok := fieldConditions[path]; !ok {
			fieldConditions[path] = bson.M{}
			fieldOrder = append(fieldOrder, path)
		}
		fieldConditions[path][operator] = value
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var anyOf []bson.M
	for _, rawKey := range keys {
		values := params[rawKey]
		if reserved[rawKey] || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		value := strings.TrimSpace(values[0])

		name, operator, ok := splitKey(rawKey)
		if !ok || name == "" || strings.HasPrefix(name, "$") {
			continue
		}

		if sh, ok := spec.Shorthands[name]; ok {
			addCondition(sh.Field, sh.Operator, convert(value, spec.fieldType(sh.Field)))
			continue
		}
		if paths, ok := spec.AnyOf[name]; ok {
			anyOf = append(anyOf, bson.M{"$or": containsAny(paths, value)})
			continue
		}

		path := spec.path(name)
		kind := spec.fieldType(path)

		switch {
		case operator == "$in":
			addCondition(path, "$in", convertList(value, kind))
		case operator == "$eq" && kind == Categorical:
			addCondition(path, "$regex", primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"})
		case operator == "$eq" && kind == Tags:
			addCondition(path, "$in", tagPatterns(value))
		case operator == "$eq" && kind == Prefix:
			addCondition(path, "$regex", primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value), Options: "i"})
		default:
			addCondition(path, operator, convert(value, kind))
		}
	}

	for _, path := range fieldOrder {
		conditions := fieldConditions[path]
		if len(conditions) == 1 {
			if eq, ok := conditions["$eq"]; ok {
				andConditions = append(andConditions, bson.M{path: eq})
				continue
			}
		}
		andConditions = append(andConditions, bson.M{path: conditions})
	}
	andConditions = append(andConditions, anyOf...)

	if search := strings.TrimSpace(params.Get("search")); search != "" && len(spec.SearchFields) > 0 {
		andConditions = append(andConditions, bson.M{"$or": containsAny(spec.SearchFields, search)})
	}

	filter := bson.M{}
	if len(andConditions) > 0 {
		filter["$and"] = andConditions
	}

	page, limit := Window(params, spec.DefaultLimit)
	return &Plan{
		Filter:     filter,
		Sort:       ParseSort(params.Get("sort"), spec.Aliases),
		Projection: ParseSelect(params.Get("select"), spec.Aliases),
		Page:       page,
		Limit:      limit,
	}
}

// splitKey separates "price[gte]" into ("price", "$gte"). Unknown operators
// are rejected.
func splitKey(rawKey string) (string, string, bool) {
	open := strings.IndexByte(rawKey, '[')
	if open < 0 || !strings.HasSuffix(rawKey, "]") {
		return rawKey, "$eq", true
	}
	op, ok := operatorMap[rawKey[open+1:len(rawKey)-1]]
	return rawKey[:open], op, ok
}

func containsAny(paths []string, text string) []bson.M {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	clauses := make([]bson.M, 0, len(paths))
	for _, path := range paths {
		clauses = append(clauses, bson.M{path: bson.M{"$regex": pattern}})
	}
	return clauses
}

// convert parses value for the field type. Values that do not parse are
// passed through unchanged.
func convert(value string, kind FieldType) interface{} {
	switch kind {
	case Number:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	case Bool:
		if b, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return b
		}
	case Date:
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
	case ObjectID:
		if id, err := primitive.ObjectIDFromHex(value); err == nil {
			return id
		}
	}
	return value
}

func convertList(value string, kind FieldType) bson.A {
	var out bson.A
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if kind == Categorical {
			out = append(out, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(part) + "$", Options: "i"})
			continue
		}
		out = append(out, convert(part, kind))
	}
	return out
}

func tagPatterns(value string) bson.A {
	var out bson.A
	for _, term := range strings.Split(value, ",") {
		if term = strings.TrimSpace(term); term != "" {
			out = append(out, primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"})
		}
	}
	return out
}

// Window reads page and limit, falling back to page 1 and defaultLimit when
// either is missing or malformed. page is capped so that page*limit fits in
// an int64; a capped page still lies past the end of any result set.
func Window(params url.Values, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(params.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page, err := strconv.ParseInt(params.Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt64 / int64(limit); page > maxPage {
		page = maxPage
	}
	return int(page), limit
}
