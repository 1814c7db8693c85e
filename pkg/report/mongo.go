package report

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/licensecrawl/pkg/deps"
)

// Default MongoDB database and collection names.
const (
	DefaultDatabase   = "licensecrawl"
	RunsCollection    = "runs"
	RecordsCollection = "records"
)

// RunDocument summarises one stored run.
type RunDocument struct {
	RunID      string    `bson:"_id"`
	Project    string    `bson:"project"`
	Started    time.Time `bson:"started"`
	DurationMS int64     `bson:"duration_ms"`
	Seeds      int       `bson:"seeds"`
	Records    int       `bson:"records"`
	Unknown    int       `bson:"unknown"`
	Violations int       `bson:"violations"`
}

type recordDocument struct {
	RunID       string `bson:"run_id"`
	deps.Record `bson:",inline"`
}

// MongoSink stores runs and their records in MongoDB.
type MongoSink struct {
	client  *mongo.Client
	runs    *mongo.Collection
	records *mongo.Collection
}

// NewMongoSink connects to uri and verifies the connection. An empty
// database selects [DefaultDatabase].
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoSinkFromClient(client, database), nil
}

// NewMongoSinkFromClient uses an existing client.
func NewMongoSinkFromClient(client *mongo.Client, database string) *MongoSink {
	if database == "" {
		database = DefaultDatabase
	}
	db := client.Database(database)
	return &MongoSink{
		client:  client,
		runs:    db.Collection(RunsCollection),
		records: db.Collection(RecordsCollection),
	}
}

// Store writes the run summary and every record of res, tagged with the
// run ID.
func (s *MongoSink) Store(ctx context.Context, project string, res *deps.Result, sum Summary) error {
	run := NewRunDocument(project, res, sum)
	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("store run %s: %w", res.RunID, err)
	}
	if len(res.Records) == 0 {
		return nil
	}
	docs := make([]any, len(res.Records))
	for i, rec := range res.Records {
		docs[i] = recordDocument{RunID: res.RunID, Record: rec}
	}
	if _, err := s.records.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("store records of run %s: %w", res.RunID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. A non-empty project
// restricts the result to that project.
func (s *MongoSink) Runs(ctx context.Context, project string, limit int64) ([]RunDocument, error) {
	filter := bson.M{}
	if project != "" {
		filter["project"] = project
	}
	opts := options.Find().SetSort(bson.D{{Key: "started", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.runs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []RunDocument
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Records loads the records stored for runID, sorted by identity.
func (s *MongoSink) Records(ctx context.Context, runID string) ([]deps.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cur, err := s.records.Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]deps.Record, len(docs))
	for i, d := range docs {
		rec := d.Record
		rec.Identity = deps.Identity{Registry: rec.Registry, Name: rec.Name, Version: rec.Version}
		out[i] = rec
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// NewRunDocument builds the stored summary of res.
func NewRunDocument(project string, res *deps.Result, sum Summary) RunDocument {
	return RunDocument{
		RunID:      res.RunID,
		Project:    project,
		Started:    res.Started,
		DurationMS: res.Duration.Milliseconds(),
		Seeds:      len(res.Seeds),
		Records:    len(res.Records),
		Unknown:    sum.Unknown,
		Violations: len(sum.Violations),
	}
}
