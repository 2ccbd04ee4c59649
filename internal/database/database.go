// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client      *mongo.Client
	Freets      *mongo.Collection
	Likes       *mongo.Collection
	Approves    *mongo.Collection
	Disapproves *mongo.Collection
	Links       *mongo.Collection
}

func NewMongoDB(uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	db := client.Database(dbName)
	m := &MongoDB{
		Client:      client,
		Freets:      db.Collection("freets"),
		Likes:       db.Collection("likes"),
		Approves:    db.Collection("approves"),
		Disapproves: db.Collection("disapproves"),
		Links:       db.Collection("links"),
	}

	if err := m.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureIndexes creates the unique indexes the reputation invariants lean on:
// one record per (user, freet) per reaction kind, and one ledger entry per
// (freet, polarity, url).
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	reactionIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userid", Value: 1}, {Key: "freetid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{m.Likes, m.Approves, m.Disapproves} {
		if _, err := coll.Indexes().CreateOne(ctx, reactionIndex); err != nil {
			return fmt.Errorf("failed to create index on %s: %v", coll.Name(), err)
		}
	}

	linkIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "freetid", Value: 1},
			{Key: "isapprove", Value: 1},
			{Key: "url", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.Links.Indexes().CreateOne(ctx, linkIndex); err != nil {
		return fmt.Errorf("failed to create index on links: %v", err)
	}

	authorIndex := mongo.IndexModel{Keys: bson.D{{Key: "authorid", Value: 1}}}
	if _, err := m.Freets.Indexes().CreateOne(ctx, authorIndex); err != nil {
		return fmt.Errorf("failed to create index on freets: %v", err)
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	log.Println("Closing MongoDB connection...")
	return m.Client.Disconnect(ctx)
}

var _ Store = (*MongoDB)(nil)
