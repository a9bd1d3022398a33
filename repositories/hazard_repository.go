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

type HazardRepository struct {
	hazardsCollection *mongo.Collection
}

func NewHazardRepository(database *mongo.Database) *HazardRepository {
	return &HazardRepository{
		hazardsCollection: database.Collection("hazard_reports"),
	}
}

func (hr *HazardRepository) Create(ctx context.Context, hazard *models.HazardReport) error {
	now := time.Now()
	hazard.CreatedAt = now
	hazard.UpdatedAt = now

	if hazard.Status == "" {
		hazard.Status = "open"
	}
	if hazard.UpvotedBy == nil {
		hazard.UpvotedBy = []string{}
	}

	_, err := hr.hazardsCollection.InsertOne(ctx, hazard)
	if err != nil {
		logrus.Errorf("Failed to create hazard report: %v", err)
		return utils.WrapDatabaseError(err, "create hazard report")
	}

	return nil
}

func (hr *HazardRepository) GetByID(ctx context.Context, id string) (*models.HazardReport, error) {
	var hazard models.HazardReport
	err := hr.hazardsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&hazard)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewHazardNotFoundError()
		}
		return nil, utils.WrapDatabaseError(err, "get hazard report")
	}

	return &hazard, nil
}

func (hr *HazardRepository) List(ctx context.Context, page, pageSize int) ([]models.HazardReport, int64, error) {
	filter := bson.M{"status": "open"}

	total, err := hr.hazardsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "count hazard reports")
	}

	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := hr.hazardsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "list hazard reports")
	}
	defer cursor.Close(ctx)

	var hazards []models.HazardReport
	if err := cursor.All(ctx, &hazards); err != nil {
		return nil, 0, utils.WrapDatabaseError(err, "decode hazard reports")
	}

	return hazards, total, nil
}

// AddUpvote registers a user's upvote. $addToSet keeps the voter list a set,
// so the matched filter excludes users who already voted.
func (hr *HazardRepository) AddUpvote(ctx context.Context, hazardID, userID string) error {
	result, err := hr.hazardsCollection.UpdateOne(
		ctx,
		bson.M{"_id": hazardID, "upvotedBy": bson.M{"$ne": userID}},
		bson.M{
			"$inc":      bson.M{"upvotes": 1},
			"$addToSet": bson.M{"upvotedBy": userID},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return utils.WrapDatabaseError(err, "add hazard upvote")
	}
	if result.MatchedCount == 0 {
		return utils.NewConflictError("ALREADY_UPVOTED", "User has already upvoted this hazard")
	}

	return nil
}

// RemoveUpvote withdraws a user's upvote.
func (hr *HazardRepository) RemoveUpvote(ctx context.Context, hazardID, userID string) error {
	result, err := hr.hazardsCollection.UpdateOne(
		ctx,
		bson.M{"_id": hazardID, "upvotedBy": userID},
		bson.M{
			"$inc":  bson.M{"upvotes": -1},
			"$pull": bson.M{"upvotedBy": userID},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return utils.WrapDatabaseError(err, "remove hazard upvote")
	}
	if result.MatchedCount == 0 {
		return utils.NewConflictError("NOT_UPVOTED", "User has not upvoted this hazard")
	}

	return nil
}

func (hr *HazardRepository) UpdateStatus(ctx context.Context, hazardID, status string) error {
	result, err := hr.hazardsCollection.UpdateOne(
		ctx,
		bson.M{"_id": hazardID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return utils.WrapDatabaseError(err, "update hazard status")
	}
	if result.MatchedCount == 0 {
		return utils.NewHazardNotFoundError()
	}

	return nil
}
