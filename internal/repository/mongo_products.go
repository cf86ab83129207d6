package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

// productDoc stores price as a string so the decimal value round-trips
// without binary floating point anywhere in the path.
type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Code        string             `bson:"code"`
	Price       string             `bson:"price"`
	Stock       int                `bson:"stock"`
	Category    string             `bson:"category"`
	Thumbnail   string             `bson:"thumbnail,omitempty"`
	OwnerID     string             `bson:"owner_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *productDoc) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q for product %s: %w", d.Price, d.ID.Hex(), err)
	}
	return &domain.Product{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Code:        d.Code,
		Price:       price,
		Stock:       d.Stock,
		Category:    d.Category,
		Thumbnail:   d.Thumbnail,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func productIDFilter(productID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return bson.M{"_id": oid}, nil
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	filter, err := productIDFilter(productID)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoProductRepository) ListProducts(ctx context.Context, page, limit int, sort string) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	order := 1
	if sort == "desc" {
		order = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "price", Value: order}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ProductPage{
		Products:   products,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

func (m *mongoProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (string, error) {
	now := time.Now()
	doc := productDoc{
		Title:       product.Title,
		Description: product.Description,
		Code:        product.Code,
		Price:       product.Price.String(),
		Stock:       product.Stock,
		Category:    product.Category,
		Thumbnail:   product.Thumbnail,
		OwnerID:     product.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoProductRepository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	filter, err := productIDFilter(product.ID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"title":       product.Title,
		"description": product.Description,
		"code":        product.Code,
		"price":       product.Price.String(),
		"stock":       product.Stock,
		"category":    product.Category,
		"thumbnail":   product.Thumbnail,
		"updated_at":  time.Now(),
	}}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m *mongoProductRepository) DeleteProduct(ctx context.Context, productID string) (*domain.Product, error) {
	filter, err := productIDFilter(productID)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	err = m.collection.FindOneAndDelete(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoProductRepository) SnapshotByIDs(ctx context.Context, productIDs []string) (map[string]ProductSnapshot, error) {
	oids := make([]primitive.ObjectID, 0, len(productIDs))
	for _, id := range productIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			// A malformed ref can never exist; leave it out of the snapshot.
			continue
		}
		oids = append(oids, oid)
	}

	snapshot := make(map[string]ProductSnapshot, len(oids))
	if len(oids) == 0 {
		return snapshot, nil
	}

	opts := options.Find().SetProjection(bson.M{"price": 1, "stock": 1})
	cursor, err := m.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read product snapshot: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot entry: %w", err)
		}
		price, err := decimal.NewFromString(doc.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q for product %s: %w", doc.Price, doc.ID.Hex(), err)
		}
		snapshot[doc.ID.Hex()] = ProductSnapshot{UnitPrice: price, Stock: doc.Stock}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	return snapshot, nil
}

// CreateProductIndexes enforces unique product codes.
func CreateProductIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}

	if _, err := db.Collection("products").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}
