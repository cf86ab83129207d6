package domain

import "time"

type UserRole string

const (
	RoleUser    UserRole = "user"
	RolePremium UserRole = "premium"
	RoleAdmin   UserRole = "admin"
)

type UserDocument struct {
	Name       string    `bson:"name"`
	Reference  string    `bson:"reference"`
	UploadedAt time.Time `bson:"uploaded_at"`
}

type User struct {
	ID           string         `bson:"_id,omitempty"`
	FirstName    string         `bson:"first_name"`
	LastName     string         `bson:"last_name"`
	Email        string         `bson:"email"`
	Age          int            `bson:"age"`
	Role         UserRole       `bson:"role"`
	Documents    []UserDocument `bson:"documents,omitempty"`
	LastActivity time.Time      `bson:"last_activity"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}
