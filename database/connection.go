package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect establishes connection to MongoDB.
func Connect(databaseURL string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(databaseURL)
	clientOptions.SetMaxPoolSize(100)
	clientOptions.SetMinPoolSize(5)
	clientOptions.SetMaxConnIdleTime(30 * time.Second)
	clientOptions.SetRetryWrites(true)
	clientOptions.SetRetryReads(true)
	clientOptions.SetReadPreference(readpref.PrimaryPreferred())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDatabaseName(databaseURL)
	database := client.Database(dbName)

	logrus.Infof("Connected to MongoDB, database: %s", dbName)

	if err := EnsureIndexes(database); err != nil {
		logrus.Warnf("Index creation warning: %v", err)
	}

	return client, database, nil
}

// Disconnect closes the MongoDB connection.
func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the query paths rely on.
func EnsureIndexes(database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "reportedBy", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := database.Collection("emergency_sessions").Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("emergency_sessions indexes: %w", err)
	}

	alertIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "emergencyId", Value: 1}, {Key: "sentAt", Value: 1}}},
	}
	if _, err := database.Collection("emergency_alerts").Indexes().CreateMany(ctx, alertIndexes); err != nil {
		return fmt.Errorf("emergency_alerts indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := database.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	contactIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	if _, err := database.Collection("emergency_contacts").Indexes().CreateMany(ctx, contactIndexes); err != nil {
		return fmt.Errorf("emergency_contacts indexes: %w", err)
	}

	hazardIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := database.Collection("hazard_reports").Indexes().CreateMany(ctx, hazardIndexes); err != nil {
		return fmt.Errorf("hazard_reports indexes: %w", err)
	}

	return nil
}

func extractDatabaseName(databaseURL string) string {
	// mongodb://host:port/dbname?options
	parts := strings.Split(databaseURL, "/")
	if len(parts) < 4 {
		return "campusguard"
	}

	name := parts[len(parts)-1]
	if idx := strings.Index(name, "?"); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return "campusguard"
	}
	return name
}
