package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection: db.Collection("users"),
	}
}

type userDoc struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty"`
	FirstName    string                `bson:"first_name"`
	LastName     string                `bson:"last_name"`
	Email        string                `bson:"email"`
	Age          int                   `bson:"age"`
	Role         domain.UserRole       `bson:"role"`
	Documents    []domain.UserDocument `bson:"documents,omitempty"`
	LastActivity time.Time             `bson:"last_activity"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Age:          d.Age,
		Role:         d.Role,
		Documents:    d.Documents,
		LastActivity: d.LastActivity,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func userIDFilter(userID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return bson.M{"_id": oid}, nil
}

func (m *mongoUserRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	filter, err := userIDFilter(userID)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain(), nil
}

func (m *mongoUserRepository) GetEmail(ctx context.Context, userID string) (string, error) {
	filter, err := userIDFilter(userID)
	if err != nil {
		return "", err
	}

	var doc userDoc
	opts := options.FindOne().SetProjection(bson.M{"email": 1})
	if err := m.collection.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user email: %w", err)
	}
	return doc.Email, nil
}

func (m *mongoUserRepository) ListUsers(ctx context.Context, page, limit int, sort string) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	order := 1
	if sort == "desc" {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_name", Value: order}, {Key: "first_name", Value: order}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*domain.User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &UserPage{
		Users:      users,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

func (m *mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	now := time.Now()
	doc := userDoc{
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Email:        user.Email,
		Age:          user.Age,
		Role:         user.Role,
		Documents:    user.Documents,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if doc.Role == "" {
		doc.Role = domain.RoleUser
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	filter, err := userIDFilter(user.ID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"age":        user.Age,
		"updated_at": time.Now(),
	}}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) DeleteUser(ctx context.Context, userID string) error {
	filter, err := userIDFilter(userID)
	if err != nil {
		return err
	}

	res, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) SetRole(ctx context.Context, userID string, role domain.UserRole) error {
	filter, err := userIDFilter(userID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"role": role, "updated_at": time.Now()}}
	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) AppendDocuments(ctx context.Context, userID string, docs []domain.UserDocument) error {
	filter, err := userIDFilter(userID)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range docs {
		if docs[i].UploadedAt.IsZero() {
			docs[i].UploadedAt = now
		}
	}

	update := bson.M{
		"$push": bson.M{"documents": bson.M{"$each": docs}},
		"$set":  bson.M{"updated_at": now},
	}
	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append user documents: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) DeleteInactive(ctx context.Context, before time.Time) (int64, error) {
	filter := bson.M{
		"last_activity": bson.M{"$lt": before},
		"role":          bson.M{"$ne": domain.RoleAdmin},
	}

	res, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive users: %w", err)
	}
	return res.DeletedCount, nil
}

// CreateUserIndexes enforces unique emails.
func CreateUserIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_activity", Value: 1}},
		},
	}

	if _, err := db.Collection("users").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}
