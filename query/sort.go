package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultSort is newest first.
var DefaultSort = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// ParseSort reads "field,-other" into a sort document. _id is appended as a
// tiebreaker so that paging over equal keys is stable.
func ParseSort(raw string, aliases map[string]string) bson.D {
	var sortDoc bson.D
	seenID := false
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		direction := 1
		if strings.HasPrefix(part, "-") {
			direction = -1
			part = part[1:]
		} else if strings.HasPrefix(part, "+") {
			part = part[1:]
		}
		if part == "" || strings.HasPrefix(part, "$") {
			continue
		}
		if alias, ok := aliases[part]; ok {
			part = alias
		}
		if part == "_id" {
			seenID = true
		}
		sortDoc = append(sortDoc, bson.E{Key: part, Value: direction})
	}
	if len(sortDoc) == 0 {
		return DefaultSort
	}
	if !seenID {
		sortDoc = append(sortDoc, bson.E{Key: "_id", Value: sortDoc[0].Value})
	}
	return sortDoc
}

// ParseSelect reads "title,price" into an inclusion projection. An empty
// string selects every field.
func ParseSelect(raw string, aliases map[string]string) bson.M {
	var projection bson.M
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if strings.HasPrefix(part, "$") || strings.HasPrefix(part, "-") {
			continue
		}
		if alias, ok := aliases[part]; ok {
			part = alias
		}
		if projection == nil {
			projection = bson.M{}
		}
		projection[part] = 1
	}
	return projection
}
