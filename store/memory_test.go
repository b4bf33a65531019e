package store

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/dcode-github/realestate_platform/backend/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type address struct {
	City  string `bson:"city"`
	State string `bson:"state"`
}

type listing struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty"`
	Title        string              `bson:"title"`
	Description  string              `bson:"description"`
	Price        float64             `bson:"price"`
	PropertyType string              `bson:"propertyType"`
	Status       string              `bson:"status"`
	Address      address             `bson:"address"`
	Features     []string            `bson:"features"`
	Views        int                 `bson:"views"`
	Agent        *primitive.ObjectID `bson:"agent,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt"`
}

func seed(t *testing.T, c Collection, docs ...listing) []listing {
	t.Helper()
	for i := range docs {
		if docs[i].ID.IsZero() {
			docs[i].ID = primitive.NewObjectID()
		}
		if err := c.Insert(context.Background(), docs[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return docs
}

func TestMemoryFindWithTranslatedFilter(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	agent := primitive.NewObjectID()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seed(t, c,
		listing{Title: "Lake House", Price: 300000, PropertyType: "house", Status: "for-sale", Address: address{City: "Austin", State: "TX"}, Features: []string{"Pool", "Garage"}, Agent: &agent, CreatedAt: base},
		listing{Title: "City Loft", Price: 150000, PropertyType: "apartment", Status: "for-sale", Address: address{City: "Dallas", State: "TX"}, CreatedAt: base.Add(time.Hour)},
		listing{Title: "Cabin", Description: "by the lake", Price: 90000, PropertyType: "House", Status: "sold", Address: address{City: "Waco", State: "TX"}, CreatedAt: base.Add(2 * time.Hour)},
	)

	cases := []struct {
		params url.Values
		want   []string
	}{
		{url.Values{"search": {"LAKE"}}, []string{"Cabin", "Lake House"}},
		{url.Values{"propertyType": {"HOUSE"}}, []string{"Cabin", "Lake House"}},
		{url.Values{"price[gte]": {"100000"}, "price[lt]": {"300000"}}, []string{"City Loft"}},
		{url.Values{"status[in]": {"sold,pending"}}, []string{"Cabin"}},
		{url.Values{"features": {"pool"}}, []string{"Lake House"}},
		{url.Values{"agent": {agent.Hex()}}, []string{"Lake House"}},
		{url.Values{"city": {"austin"}, "search": {"loft"}}, nil},
		{url.Values{"sort": {"price"}}, []string{"Cabin", "City Loft", "Lake House"}},
	}

	for _, tc := range cases {
		plan := query.Translate(tc.params, query.Properties, nil)
		var got []listing
		if err := c.Find(ctx, plan.Filter, FindOptions{Sort: plan.Sort}, &got); err != nil {
			t.Fatalf("%v: find: %v", tc.params, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%v: expected %d results, got %d", tc.params, len(tc.want), len(got))
		}
		for i, title := range tc.want {
			if got[i].Title != title {
				t.Fatalf("%v: result %d expected %q, got %q", tc.params, i, title, got[i].Title)
			}
		}
	}
}

func TestMemoryScopeAndSearchMustBothHold(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	mine, other := primitive.NewObjectID(), primitive.NewObjectID()
	seed(t, c,
		listing{Title: "Lake View", Agent: &mine},
		listing{Title: "Lake Side", Agent: &other},
		listing{Title: "Hilltop", Agent: &mine},
	)

	scope := bson.M{"$or": []bson.M{{"agent": mine}, {"coAgent": mine}}}
	plan := query.Translate(url.Values{"search": {"lake"}}, query.Properties, scope)

	n, err := c.Count(ctx, plan.Filter)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the scoped search match, got %d", n)
	}
}

func TestMemoryPaging(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	base := time.Now()
	for i := 0; i < 7; i++ {
		seed(t, c, listing{Title: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	plan := query.Translate(url.Values{"limit": {"3"}, "page": {"3"}}, query.Properties, nil)
	var got []listing
	if err := c.Find(ctx, plan.Filter, FindOptions{Sort: plan.Sort, Skip: plan.Skip(), Limit: int64(plan.Limit)}, &got); err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("expected the oldest document alone on the last page, got %+v", got)
	}
	if plan.Paginate(7).Next != nil {
		t.Fatalf("last page must not have a next page")
	}
}

func TestMemoryProjection(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	seed(t, c, listing{Title: "Lake House", Price: 10, Status: "sold"})

	var got []listing
	if err := c.Find(ctx, nil, FindOptions{Projection: bson.M{"title": 1}}, &got); err != nil {
		t.Fatalf("find: %v", err)
	}
	if got[0].Title != "Lake House" || got[0].Price != 0 || got[0].Status != "" || got[0].ID.IsZero() {
		t.Fatalf("unexpected projected document %+v", got[0])
	}
}

func TestMemoryUpdatesAndReplace(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	docs := seed(t, c, listing{Title: "Old", Views: 3})
	id := docs[0].ID

	for i := 0; i < 2; i++ {
		if n, err := c.Update(ctx, ByID(id), bson.M{"$inc": bson.M{"views": 1}}); err != nil || n != 1 {
			t.Fatalf("inc: matched %d, err %v", n, err)
		}
	}
	if _, err := c.Update(ctx, ByID(id), bson.M{"$set": bson.M{"address.city": "Austin"}, "$push": bson.M{"features": "Pool"}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got listing
	if err := c.FindOne(ctx, ByID(id), &got); err != nil {
		t.Fatalf("find one: %v", err)
	}
	if got.Views != 5 || got.Address.City != "Austin" || len(got.Features) != 1 {
		t.Fatalf("unexpected document after updates %+v", got)
	}

	got.Title = "New"
	if err := c.Replace(ctx, ByID(id), got); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := c.Replace(ctx, ByID(primitive.NewObjectID()), got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound replacing a missing document, got %v", err)
	}
	if n, _ := c.Count(ctx, bson.M{"title": "New"}); n != 1 {
		t.Fatalf("expected replaced title")
	}

	if n, err := c.Delete(ctx, ByID(id)); err != nil || n != 1 {
		t.Fatalf("delete: %d %v", n, err)
	}
	if err := c.FindOne(ctx, ByID(id), &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryDuplicateID(t *testing.T) {
	c := NewMemoryStore().Collection(Properties)
	docs := seed(t, c, listing{Title: "a"})
	if err := c.Insert(context.Background(), docs[0]); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryAggregations(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection(Properties)
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	seed(t, c,
		listing{PropertyType: "house", Price: 50000, Views: 4, CreatedAt: jan},
		listing{PropertyType: "house", Price: 120000, Views: 6, CreatedAt: feb},
		listing{PropertyType: "condo", Price: 3000000, CreatedAt: feb},
	)

	groups, err := c.GroupBy(ctx, nil, "propertyType", "price")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 2 || groups[0].Key != "house" || groups[0].Count != 2 || groups[0].Sum != 170000 {
		t.Fatalf("unexpected groups %+v", groups)
	}

	months, err := c.Monthly(ctx, nil, "createdAt", "", 12)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(months) != 2 || months[0].Month != 2 || months[0].Count != 2 || months[1].Month != 1 {
		t.Fatalf("unexpected months %+v", months)
	}

	boundaries := []float64{0, 100000, 250000, 500000, 750000, 1000000, 2000000, math.Inf(1)}
	buckets, err := c.Buckets(ctx, nil, "price", boundaries)
	if err != nil {
		t.Fatalf("buckets: %v", err)
	}
	if len(buckets) != 3 || buckets[0].Min != 0 || *buckets[0].Max != 100000 || buckets[2].Min != 2000000 || buckets[2].Max != nil {
		t.Fatalf("unexpected buckets %+v", buckets)
	}

	total, err := c.Sum(ctx, nil, "views")
	if err != nil || total != 10 {
		t.Fatalf("expected 10 views, got %v (%v)", total, err)
	}

	empty := NewMemoryStore().Collection(Leads)
	if groups, _ := empty.GroupBy(ctx, nil, "status", ""); len(groups) != 0 {
		t.Fatalf("expected no groups on an empty collection")
	}
}
