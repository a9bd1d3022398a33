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

type UserRepository struct {
	usersCollection    *mongo.Collection
	contactsCollection *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{
		usersCollection:    database.Collection("users"),
		contactsCollection: database.Collection("emergency_contacts"),
	}
}

func (ur *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := ur.usersCollection.InsertOne(ctx, user)
	if err != nil {
		logrus.Errorf("Failed to create user: %v", err)
		return utils.WrapDatabaseError(err, "create user")
	}

	return nil
}

func (ur *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := ur.usersCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, utils.WrapDatabaseError(err, "get user")
	}

	return &user, nil
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := ur.usersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewUserNotFoundError()
		}
		return nil, utils.WrapDatabaseError(err, "get user by email")
	}

	return &user, nil
}

func (ur *UserRepository) Update(ctx context.Context, id string, updateFields bson.M) error {
	updateFields["updatedAt"] = time.Now()

	result, err := ur.usersCollection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updateFields},
	)
	if err != nil {
		return utils.WrapDatabaseError(err, "update user")
	}
	if result.MatchedCount == 0 {
		return utils.NewUserNotFoundError()
	}

	return nil
}

func (ur *UserRepository) UpdatePushToken(ctx context.Context, id, pushToken string) error {
	return ur.Update(ctx, id, bson.M{"pushToken": pushToken})
}

func (ur *UserRepository) UpdateLastKnownLocation(ctx context.Context, id string, point models.GeoPoint) error {
	return ur.Update(ctx, id, bson.M{
		"location": point,
		"lastSeen": time.Now(),
	})
}

// GetByRole returns active users holding the given role.
func (ur *UserRepository) GetByRole(ctx context.Context, role string) ([]models.User, error) {
	cursor, err := ur.usersCollection.Find(ctx, bson.M{
		"role":     role,
		"isActive": true,
	})
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list users by role")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, utils.WrapDatabaseError(err, "decode users by role")
	}

	return users, nil
}

// GetAvailableVolunteers returns verified volunteers currently marked
// available with a known location.
func (ur *UserRepository) GetAvailableVolunteers(ctx context.Context) ([]models.User, error) {
	cursor, err := ur.usersCollection.Find(ctx, bson.M{
		"role":        models.RoleVolunteer,
		"isActive":    true,
		"isAvailable": true,
		"isVerified":  true,
		"location":    bson.M{"$ne": nil},
	})
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list available volunteers")
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, utils.WrapDatabaseError(err, "decode available volunteers")
	}

	return users, nil
}

// =================== EMERGENCY CONTACTS ===================

func (ur *UserRepository) CreateContact(ctx context.Context, contact *models.EmergencyContact) error {
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := ur.contactsCollection.InsertOne(ctx, contact)
	if err != nil {
		return utils.WrapDatabaseError(err, "create emergency contact")
	}

	return nil
}

func (ur *UserRepository) GetUserContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})

	cursor, err := ur.contactsCollection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list emergency contacts")
	}
	defer cursor.Close(ctx)

	var contacts []models.EmergencyContact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, utils.WrapDatabaseError(err, "decode emergency contacts")
	}

	return contacts, nil
}

func (ur *UserRepository) DeleteContact(ctx context.Context, userID, contactID string) error {
	result, err := ur.contactsCollection.DeleteOne(ctx, bson.M{
		"_id":    contactID,
		"userId": userID,
	})
	if err != nil {
		return utils.WrapDatabaseError(err, "delete emergency contact")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("Emergency contact")
	}

	return nil
}
