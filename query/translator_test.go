package query

import (
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func clauses(t *testing.T, plan *Plan) []bson.M {
	t.Helper()
	and, ok := plan.Filter["$and"].([]bson.M)
	if !ok {
		t.Fatalf("expected $and clause list, got %#v", plan.Filter)
	}
	return and
}

func TestEmptySearchAddsNoClause(t *testing.T) {
	plan := Translate(url.Values{"search": {"   "}}, Properties, nil)
	if len(plan.Filter) != 0 {
		t.Fatalf("expected empty filter, got %#v", plan.Filter)
	}
}

func TestSearchScopeAndFieldsAreAllANDed(t *testing.T) {
	agent := primitive.NewObjectID()
	scope := bson.M{"$or": []bson.M{{"agent": agent}, {"attendees": agent}}}
	params := url.Values{
		"search":       {"lake"},
		"propertyType": {"House"},
		"price[gte]":   {"100000"},
		"price[lte]":   {"250000"},
	}

	and := clauses(t, Translate(params, Properties, scope))
	if len(and) != 4 {
		t.Fatalf("expected scope, type, price and search clauses, got %d: %#v", len(and), and)
	}
	if _, ok := and[0]["$or"]; !ok {
		t.Fatalf("scope must be the first clause, got %#v", and[0])
	}

	var ors int
	for _, clause := range and {
		if _, ok := clause["$or"]; ok {
			ors++
		}
	}
	if ors != 2 {
		t.Fatalf("expected both the scope and search $or to survive, got %d", ors)
	}

	search := and[3]["$or"].([]bson.M)
	if len(search) != 5 {
		t.Fatalf("expected 5 property search fields, got %d", len(search))
	}
	if _, ok := search[2]["address.city"]; !ok {
		t.Fatalf("expected city search on address.city, got %#v", search[2])
	}
}

func TestRangeMergesOperatorsOnOneField(t *testing.T) {
	plan := Translate(url.Values{"price[gte]": {"10"}, "price[lt]": {"20"}}, Properties, nil)
	and := clauses(t, plan)
	if len(and) != 1 {
		t.Fatalf("expected one merged clause, got %#v", and)
	}
	cond := and[0]["price"].(bson.M)
	if cond["$gte"] != 10.0 || cond["$lt"] != 20.0 {
		t.Fatalf("unexpected range %#v", cond)
	}
}

func TestUnparseableNumberPassesThrough(t *testing.T) {
	and := clauses(t, Translate(url.Values{"price[gte]": {"cheap"}}, Properties, nil))
	cond := and[0]["price"].(bson.M)
	if cond["$gte"] != "cheap" {
		t.Fatalf("expected raw value to pass through, got %#v", cond["$gte"])
	}
}

func TestCategoricalEqualityIsCaseInsensitive(t *testing.T) {
	and := clauses(t, Translate(url.Values{"status": {"For-Sale"}}, Properties, nil))
	re, ok := and[0]["status"].(bson.M)["$regex"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected regex match, got %#v", and[0])
	}
	if re.Pattern != "^For-Sale$" || re.Options != "i" {
		t.Fatalf("unexpected pattern %#v", re)
	}
}

func TestPlainEqualityAndMembership(t *testing.T) {
	agent := primitive.NewObjectID()
	params := url.Values{
		"agent":        {agent.Hex()},
		"bedrooms[in]": {"2,3"},
		"zipCode":      {"90210"},
	}
	and := clauses(t, Translate(params, Properties, nil))
	if len(and) != 3 {
		t.Fatalf("expected 3 clauses, got %#v", and)
	}
	found := map[string]interface{}{}
	for _, clause := range and {
		for k, v := range clause {
			found[k] = v
		}
	}
	if found["agent"] != agent {
		t.Fatalf("expected ObjectID equality, got %#v", found["agent"])
	}
	in := found["bedrooms"].(bson.M)["$in"].(bson.A)
	if len(in) != 2 || in[0] != 2.0 || in[1] != 3.0 {
		t.Fatalf("unexpected membership %#v", in)
	}
	if found["address.zipCode"] != "90210" {
		t.Fatalf("expected aliased equality, got %#v", found["address.zipCode"])
	}
}

func TestUnknownOperatorAndDollarKeysAreDropped(t *testing.T) {
	plan := Translate(url.Values{"price[regex]": {".*"}, "$where": {"1"}}, Properties, nil)
	if len(plan.Filter) != 0 {
		t.Fatalf("expected no clauses, got %#v", plan.Filter)
	}
}

func TestShorthandsAndLocation(t *testing.T) {
	and := clauses(t, Translate(url.Values{"minPrice": {"5"}, "location": {"austin"}}, Properties, nil))
	if len(and) != 2 {
		t.Fatalf("expected price and location clauses, got %#v", and)
	}
	if and[0]["price"].(bson.M)["$gte"] != 5.0 {
		t.Fatalf("unexpected shorthand clause %#v", and[0])
	}
	if len(and[1]["$or"].([]bson.M)) != 3 {
		t.Fatalf("unexpected location clause %#v", and[1])
	}
}

func TestLeadSearchFields(t *testing.T) {
	and := clauses(t, Translate(url.Values{"search": {"a+b"}}, Leads, nil))
	or := and[0]["$or"].([]bson.M)
	if len(or) != 3 {
		t.Fatalf("expected name, email and phone, got %#v", or)
	}
	re := or[0]["name"].(bson.M)["$regex"].(primitive.Regex)
	if re.Pattern != `a\+b` {
		t.Fatalf("search text must be quoted, got %q", re.Pattern)
	}
}

func TestSortSelectAndDefaults(t *testing.T) {
	plan := Translate(url.Values{}, Leads, nil)
	if plan.Page != 1 || plan.Limit != 20 {
		t.Fatalf("expected lead defaults 1/20, got %d/%d", plan.Page, plan.Limit)
	}
	if plan.Sort[0].Key != "createdAt" || plan.Sort[0].Value != -1 {
		t.Fatalf("expected newest first, got %#v", plan.Sort)
	}
	if plan.Projection != nil {
		t.Fatalf("expected no projection, got %#v", plan.Projection)
	}

	plan = Translate(url.Values{"sort": {"-price,city"}, "select": {"title,price"}}, Properties, nil)
	want := bson.D{{Key: "price", Value: -1}, {Key: "address.city", Value: 1}, {Key: "_id", Value: -1}}
	if len(plan.Sort) != len(want) {
		t.Fatalf("unexpected sort %#v", plan.Sort)
	}
	for i := range want {
		if plan.Sort[i] != want[i] {
			t.Fatalf("sort[%d]: expected %#v, got %#v", i, want[i], plan.Sort[i])
		}
	}
	if plan.Projection["title"] != 1 || plan.Projection["price"] != 1 || len(plan.Projection) != 2 {
		t.Fatalf("unexpected projection %#v", plan.Projection)
	}
}

func TestMalformedPaginationFallsBack(t *testing.T) {
	plan := Translate(url.Values{"page": {"abc"}, "limit": {"-4"}}, Properties, nil)
	if plan.Page != 1 || plan.Limit != 12 {
		t.Fatalf("expected defaults, got %d/%d", plan.Page, plan.Limit)
	}
	if plan.Skip() != 0 {
		t.Fatalf("expected zero skip, got %d", plan.Skip())
	}
}

func TestPaginationMetadata(t *testing.T) {
	const total = 25
	first := &Plan{Page: 1, Limit: 10}
	meta := first.Paginate(total)
	if meta.Next == nil || meta.Next.Page != 2 || meta.Prev != nil {
		t.Fatalf("page 1 should have next only, got %#v", meta)
	}

	last := &Plan{Page: first.TotalPages(total), Limit: 10}
	if last.Page != 3 {
		t.Fatalf("expected 3 pages, got %d", last.Page)
	}
	meta = last.Paginate(total)
	if meta.Next != nil || meta.Prev == nil || meta.Prev.Page != 2 {
		t.Fatalf("last page should have prev only, got %#v", meta)
	}
	if last.Skip() != 20 {
		t.Fatalf("expected skip 20, got %d", last.Skip())
	}

	exact := &Plan{Page: 2, Limit: 10}
	if exact.Paginate(20).Next != nil {
		t.Fatalf("exact multiple must not report a next page")
	}
}

func TestHugePageStaysPastTheEnd(t *testing.T) {
	plan := Translate(url.Values{"page": {"9223372036854775807"}, "limit": {"100"}}, Properties, nil)
	if plan.Skip() < 0 {
		t.Fatalf("skip overflowed: %d", plan.Skip())
	}
	meta := plan.Paginate(3)
	if meta.Next != nil {
		t.Fatalf("page past the end reports next %#v", meta.Next)
	}
	if meta.Prev == nil || meta.Prev.Page != plan.Page-1 || meta.Prev.Page < 1 {
		t.Fatalf("prev = %#v for page %d", meta.Prev, plan.Page)
	}
}
