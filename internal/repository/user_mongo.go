package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

type userDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Email       string             `bson:"email"`
	FirstName   string             `bson:"firstName"`
	LastName    string             `bson:"lastName"`
	Password    string             `bson:"password"` // bcrypt hash
	BudgetLimit float64            `bson:"budgetLimit"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toEntity() *entities.User {
	return &entities.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		PasswordHash: d.Password,
		BudgetLimit:  d.BudgetLimit,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a user repository on a MongoDB collection
func NewMongoUserRepository(collection *mongo.Collection) UserRepository {
	return &mongoUserRepository{collection: collection}
}

// Create inserts a new user
func (r *mongoUserRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		ID:          primitive.NewObjectID(),
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Password:    user.PasswordHash,
		BudgetLimit: user.BudgetLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Storage("create user", fmt.Errorf("%w: %v", ErrDuplicateEmail, err))
		}
		return nil, apperrors.Storage("create user", err)
	}
	return doc.toEntity(), nil
}

// FindByEmail finds a user by email
func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID finds a user by id; malformed ids are treated as absent
func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// DeleteByEmail removes the user with the given email
func (r *mongoUserRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return false, apperrors.Storage("delete user", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*entities.User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("find user", err)
	}
	return doc.toEntity(), nil
}
