// Package db holds the optional database sinks the episode is mirrored to:
// a Mongo archive of source articles and a Postgres (or Supabase) episode table.
package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edopalomino/generate-startupcafe/pkg/domain"
)

// Client wraps the MongoDB client and the article archive collection
type Client struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewClient connects to MongoDB and verifies the connection
func NewClient(ctx context.Context, connectionString, databaseName, collectionName string) (*Client, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Client{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}, nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SaveArticles upserts the articles of one episode keyed by URL in a single round trip
func (c *Client) SaveArticles(ctx context.Context, articles []*domain.Article) error {
	if c.collection == nil {
		return fmt.Errorf("collection not initialized")
	}
	if len(articles) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"url": a.URL}).
			SetUpdate(bson.M{"$set": a}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	if _, err := c.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert articles: %w", err)
	}
	return nil
}

// ArchivedURLs returns the URL of every archived article as a set
func (c *Client) ArchivedURLs(ctx context.Context) (map[string]bool, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	cursor, err := c.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"url": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("query archived urls: %w", err)
	}
	defer cursor.Close(ctx)

	urls := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			URL string `bson:"url"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue // Skip invalid documents
		}
		if doc.URL != "" {
			urls[doc.URL] = true
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return urls, nil
}
