package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the production Store backed by a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

func (s *MongoStore) Database() *mongo.Database { return s.db }

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Mode() string { return "mongo" }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, opts FindOptions, results interface{}) error {
	filter = orEmpty(filter)
	findOptions := options.Find()
	if len(opts.Sort) > 0 {
		findOptions.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		findOptions.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}
	if len(opts.Projection) > 0 {
		findOptions.SetProjection(opts.Projection)
	}

	cursor, err := c.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M, result interface{}) error {
	filter = orEmpty(filter)
	err := c.coll.FindOne(ctx, filter).Decode(result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) Count(ctx context.Context, filter bson.M) (int64, error) {
	filter = orEmpty(filter)
	return c.coll.CountDocuments(ctx, filter)
}

func (c *mongoCollection) Insert(ctx context.Context, doc interface{}) error {
	_, err := c.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (c *mongoCollection) Replace(ctx context.Context, filter bson.M, doc interface{}) error {
	filter = orEmpty(filter)
	res, err := c.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Update(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	filter = orEmpty(filter)
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	filter = orEmpty(filter)
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) Delete(ctx context.Context, filter bson.M) (int64, error) {
	filter = orEmpty(filter)
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func sumExpr(field string) interface{} {
	if field == "" {
		return 0
	}
	return "$" + field
}

func (c *mongoCollection) GroupBy(ctx context.Context, filter bson.M, field, sumField string) ([]Group, error) {
	filter = orEmpty(filter)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + field,
			"count": bson.M{"$sum": 1},
			"sum":   bson.M{"$sum": sumExpr(sumField)},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	groups := []Group{}
	if err := c.aggregate(ctx, pipeline, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *mongoCollection) Monthly(ctx context.Context, filter bson.M, dateField, sumField string, limit int) ([]Month, error) {
	filter = orEmpty(filter)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$" + dateField},
				"month": bson.M{"$month": "$" + dateField},
			},
			"count": bson.M{"$sum": 1},
			"sum":   bson.M{"$sum": sumExpr(sumField)},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: -1}, {Key: "_id.month", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	var rows []struct {
		ID struct {
			Year  int `bson:"year"`
			Month int `bson:"month"`
		} `bson:"_id"`
		Count int64   `bson:"count"`
		Sum   float64 `bson:"sum"`
	}
	if err := c.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}

	months := make([]Month, 0, len(rows))
	for _, row := range rows {
		months = append(months, Month{Year: row.ID.Year, Month: row.ID.Month, Count: row.Count, Sum: row.Sum})
	}
	return months, nil
}

func (c *mongoCollection) Buckets(ctx context.Context, filter bson.M, field string, boundaries []float64) ([]Bucket, error) {
	filter = orEmpty(filter)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$bucket", Value: bson.M{
			"groupBy":    "$" + field,
			"boundaries": boundaries,
			"default":    "other",
			"output":     bson.M{"count": bson.M{"$sum": 1}},
		}}},
	}

	var rows []struct {
		ID    interface{} `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := c.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		lower, ok := toFloat(row.ID)
		if !ok {
			continue
		}
		buckets = append(buckets, Bucket{Min: lower, Max: upperBound(boundaries, lower), Count: row.Count})
	}
	return buckets, nil
}

func (c *mongoCollection) Sum(ctx context.Context, filter bson.M, field string) (float64, error) {
	filter = orEmpty(filter)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$" + field}}}},
	}

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := c.aggregate(ctx, pipeline, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (c *mongoCollection) aggregate(ctx context.Context, pipeline mongo.Pipeline, results interface{}) error {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", c.coll.Name(), err)
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}
