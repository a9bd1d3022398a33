package providers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectivityPingTimeout = 2 * time.Second

// MongoConnectivityProbe treats document-store reachability as the
// system's online/offline signal.
type MongoConnectivityProbe struct {
	client *mongo.Client
}

func NewMongoConnectivityProbe(client *mongo.Client) *MongoConnectivityProbe {
	return &MongoConnectivityProbe{client: client}
}

func (p *MongoConnectivityProbe) IsOnline(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, connectivityPingTimeout)
	defer cancel()

	return p.client.Ping(pingCtx, readpref.Primary()) == nil
}
