package catalog

import (
	"context"
	stderrors "errors"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/npym/pkg/errors"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "npym"

const mongoCollection = "wheels"

// MongoCatalog stores records in a MongoDB collection, one document per
// wheel with the filename as _id.
type MongoCatalog struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri, verifies the connection and ensures the
// project index exists.
func NewMongo(ctx context.Context, uri, database string) (*MongoCatalog, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo catalog requires a URL")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	c := NewMongoFromClient(client, database)
	if _, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "project", Value: 1}}}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "create mongo index")
	}
	return c, nil
}

// NewMongoFromClient wraps an existing client.
func NewMongoFromClient(client *mongo.Client, database string) *MongoCatalog {
	return &MongoCatalog{client: client, coll: client.Database(database).Collection(mongoCollection)}
}

func (c *MongoCatalog) Put(ctx context.Context, rec Record) error {
	rec.Project = NormalizeProject(rec.Distribution)
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": rec.Filename}, rec, options.Replace().SetUpsert(true))
	return err
}

func (c *MongoCatalog) Projects(ctx context.Context) ([]string, error) {
	values, err := c.coll.Distinct(ctx, "project", bson.D{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (c *MongoCatalog) Files(ctx context.Context, project string) ([]Record, error) {
	cur, err := c.coll.Find(ctx,
		bson.M{"project": NormalizeProject(project)},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MongoCatalog) Get(ctx context.Context, filename string) (Record, error) {
	var rec Record
	err := c.coll.FindOne(ctx, bson.M{"_id": filename}).Decode(&rec)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, notFound(filename)
	}
	return rec, err
}

func (c *MongoCatalog) Close() error {
	return c.client.Disconnect(context.Background())
}
