package repositories

import (
	"context"
	"time"

	"campusguard/models"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EmergencyRepository struct {
	database           *mongo.Database
	sessionsCollection *mongo.Collection
	alertsCollection   *mongo.Collection
}

func NewEmergencyRepository(database *mongo.Database) *EmergencyRepository {
	return &EmergencyRepository{
		database:           database,
		sessionsCollection: database.Collection("emergency_sessions"),
		alertsCollection:   database.Collection("emergency_alerts"),
	}
}

// =================== SESSION CRUD ===================

func (er *EmergencyRepository) Create(ctx context.Context, session *models.EmergencySession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUpdated = now

	if session.Status == "" {
		session.Status = models.SessionStatusActive
	}
	if session.Updates == nil {
		session.Updates = []models.EmergencyUpdate{}
	}

	_, err := er.sessionsCollection.InsertOne(ctx, session)
	if err != nil {
		logrus.Errorf("Failed to create emergency session: %v", err)
		return utils.WrapDatabaseError(err, "create emergency session")
	}

	return nil
}

func (er *EmergencyRepository) GetByID(ctx context.Context, id string) (*models.EmergencySession, error) {
	var session models.EmergencySession
	err := er.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewSessionNotFoundError()
		}
		logrus.Errorf("Failed to get emergency session by ID: %v", err)
		return nil, utils.WrapDatabaseError(err, "get emergency session")
	}

	return &session, nil
}

func (er *EmergencyRepository) Update(ctx context.Context, id string, updateFields bson.M) error {
	updateFields["lastUpdated"] = time.Now()

	result, err := er.sessionsCollection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updateFields},
	)
	if err != nil {
		logrus.Errorf("Failed to update emergency session: %v", err)
		return utils.WrapDatabaseError(err, "update emergency session")
	}

	if result.MatchedCount == 0 {
		return utils.NewSessionNotFoundError()
	}

	return nil
}

// AppendUpdate pushes a single update to the session's append-only history.
// Existing entries are never rewritten.
func (er *EmergencyRepository) AppendUpdate(ctx context.Context, id string, update models.EmergencyUpdate) error {
	result, err := er.sessionsCollection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"updates": update},
			"$set":  bson.M{"lastUpdated": time.Now()},
		},
	)
	if err != nil {
		logrus.Errorf("Failed to append session update: %v", err)
		return utils.WrapDatabaseError(err, "append session update")
	}

	if result.MatchedCount == 0 {
		return utils.NewSessionNotFoundError()
	}

	return nil
}

// GetActiveByUser returns the caller's newest non-terminal session, or nil.
func (er *EmergencyRepository) GetActiveByUser(ctx context.Context, userID string) (*models.EmergencySession, error) {
	filter := bson.M{
		"reportedBy": userID,
		"status": bson.M{"$in": []models.SessionStatus{
			models.SessionStatusActive,
			models.SessionStatusAcknowledged,
			models.SessionStatusResponded,
		}},
	}

	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})

	var session models.EmergencySession
	err := er.sessionsCollection.FindOne(ctx, filter, opts).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logrus.Errorf("Failed to get active session for user: %v", err)
		return nil, utils.WrapDatabaseError(err, "get active session")
	}

	return &session, nil
}

func (er *EmergencyRepository) GetActiveSessions(ctx context.Context) ([]models.EmergencySession, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.SessionStatus{
			models.SessionStatusActive,
			models.SessionStatusAcknowledged,
			models.SessionStatusResponded,
		}},
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1})

	cursor, err := er.sessionsCollection.Find(ctx, filter, opts)
	if err != nil {
		logrus.Errorf("Failed to list active sessions: %v", err)
		return nil, utils.WrapDatabaseError(err, "list active sessions")
	}
	defer cursor.Close(ctx)

	var sessions []models.EmergencySession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, utils.WrapDatabaseError(err, "decode active sessions")
	}

	return sessions, nil
}

func (er *EmergencyRepository) GetUserSessions(ctx context.Context, userID string, page, pageSize int) ([]models.EmergencySession, int64, error) {
	filter := bson.M{"reportedBy": userID}

	total, err := er.sessionsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "count user sessions")
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := er.sessionsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "list user sessions")
	}
	defer cursor.Close(ctx)

	var sessions []models.EmergencySession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "decode user sessions")
	}

	return sessions, total, nil
}

// =================== LIVE UPDATES ===================

// Watch opens a change stream over a single session document and invokes fn
// with each new full document until ctx is cancelled.
func (er *EmergencyRepository) Watch(ctx context.Context, sessionID string, fn func(*models.EmergencySession)) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"documentKey._id": sessionID}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := er.sessionsCollection.Watch(ctx, pipeline, opts)
	if err != nil {
		logrus.Errorf("Failed to open session change stream: %v", err)
		return utils.WrapDatabaseError(err, "watch emergency session")
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		var event struct {
			FullDocument *models.EmergencySession `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			logrus.Warnf("Failed to decode session change event: %v", err)
			continue
		}
		if event.FullDocument != nil {
			fn(event.FullDocument)
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return utils.WrapDatabaseError(err, "session change stream")
	}
	return nil
}

// =================== ALERT AUDIT LOG ===================

func (er *EmergencyRepository) CreateAlert(ctx context.Context, alert *models.EmergencyAlert) error {
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now()
	}

	_, err := er.alertsCollection.InsertOne(ctx, alert)
	if err != nil {
		logrus.Errorf("Failed to record emergency alert: %v", err)
		return utils.WrapDatabaseError(err, "create emergency alert")
	}

	return nil
}

func (er *EmergencyRepository) GetSessionAlerts(ctx context.Context, sessionID string) ([]models.EmergencyAlert, error) {
	opts := options.Find().SetSort(bson.M{"sentAt": 1})

	cursor, err := er.alertsCollection.Find(ctx, bson.M{"emergencyId": sessionID}, opts)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list session alerts")
	}
	defer cursor.Close(ctx)

	var alerts []models.EmergencyAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, utils.WrapDatabaseError(err, "decode session alerts")
	}

	return alerts, nil
}
