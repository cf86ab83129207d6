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

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

type cartDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Items     []domain.CartItem  `bson:"items"`
	Status    domain.CartStatus  `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *cartDoc) toDomain() *domain.Cart {
	return &domain.Cart{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Items:     d.Items,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func cartIDFilter(cartID string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(cartID)
	if err != nil {
		// Malformed IDs cannot match any document.
		return nil, ErrCartNotFound
	}
	return bson.M{"_id": oid}, nil
}

func (m *mongoCartRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return nil, err
	}

	var doc cartDoc
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.toDomain(), nil
}

func (m *mongoCartRepository) CreateCart(ctx context.Context, cart *domain.Cart) (string, error) {
	if len(cart.Items) == 0 {
		return "", ErrCartEmpty
	}

	now := time.Now()
	doc := cartDoc{
		UserID:    cart.UserID,
		Items:     cart.Items,
		Status:    domain.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range doc.Items {
		if doc.Items[i].AddedAt.IsZero() {
			doc.Items[i].AddedAt = now
		}
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create cart: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoCartRepository) ListCarts(ctx context.Context, limit int) ([]*domain.Cart, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	defer cursor.Close(ctx)

	var carts []*domain.Cart
	for cursor.Next(ctx) {
		var doc cartDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cart: %w", err)
		}
		carts = append(carts, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	return carts, nil
}

func (m *mongoCartRepository) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem) error {
	if len(items) == 0 {
		return ErrCartEmpty
	}

	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	// Item edits are only legal while the cart is active.
	filter["status"] = domain.CartStatusActive

	now := time.Now()
	for i := range items {
		if items[i].AddedAt.IsZero() {
			items[i].AddedAt = now
		}
	}

	update := bson.M{"$set": bson.M{"items": items, "updated_at": now}}
	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to replace cart items: %w", err)
	}
	if res.MatchedCount == 0 {
		return m.missOrConflict(ctx, cartID)
	}
	return nil
}

func (m *mongoCartRepository) AddItem(ctx context.Context, cartID string, item domain.CartItem) error {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	filter["status"] = domain.CartStatusActive

	now := time.Now()
	item.AddedAt = now

	// If a line for the product already exists, bump its quantity instead of
	// duplicating the line (product refs are unique within a cart).
	existsFilter := bson.M{}
	for k, v := range filter {
		existsFilter[k] = v
	}
	existsFilter["items.product_id"] = item.ProductID

	update := bson.M{
		"$inc": bson.M{"items.$[elem].quantity": item.Quantity},
		"$set": bson.M{"items.$[elem].added_at": now, "updated_at": now},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": item.ProductID},
		},
	})

	res, err := m.collection.UpdateOne(ctx, existsFilter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update existing item: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	push := bson.M{
		"$push": bson.M{"items": item},
		"$set":  bson.M{"updated_at": now},
	}
	res, err = m.collection.UpdateOne(ctx, filter, push)
	if err != nil {
		return fmt.Errorf("failed to add new item: %w", err)
	}
	if res.MatchedCount == 0 {
		return m.missOrConflict(ctx, cartID)
	}
	return nil
}

func (m *mongoCartRepository) UpdateItemQuantity(ctx context.Context, cartID string, productID string, quantity int) error {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	filter["status"] = domain.CartStatusActive
	filter["items.product_id"] = productID

	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID},
		},
	})

	res, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if res.MatchedCount == 0 {
		return m.classifyItemMiss(ctx, cartID, productID, false)
	}
	return nil
}

func (m *mongoCartRepository) RemoveItem(ctx context.Context, cartID string, productID string) error {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	filter["status"] = domain.CartStatusActive
	filter["items.product_id"] = productID
	// A cart always holds at least one item, so the last line cannot be
	// removed; replace the cart or delete it instead.
	filter["items.1"] = bson.M{"$exists": true}

	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if res.MatchedCount == 0 {
		return m.classifyItemMiss(ctx, cartID, productID, true)
	}
	return nil
}

// classifyItemMiss explains why an item-level update matched no document:
// cart missing, cart no longer active, removing the only item, or the item
// not being in the cart.
func (m *mongoCartRepository) classifyItemMiss(ctx context.Context, cartID, productID string, removing bool) error {
	cart, err := m.GetCart(ctx, cartID)
	if err != nil {
		return err
	}
	if cart.Status != domain.CartStatusActive {
		return ErrStatusConflict
	}
	for _, item := range cart.Items {
		if item.ProductID == productID && removing && len(cart.Items) == 1 {
			return ErrCartEmpty
		}
	}
	return ErrItemNotFound
}

// CompareAndSetStatus is the single serialization point for checkout. The
// conditional UpdateOne is atomic per document: of two concurrent callers both
// expecting "active", MongoDB matches the filter for exactly one.
func (m *mongoCartRepository) CompareAndSetStatus(ctx context.Context, cartID string, expected, next domain.CartStatus) error {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	filter["status"] = expected

	update := bson.M{"$set": bson.M{"status": next, "updated_at": time.Now()}}
	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to compare-and-set cart status: %w", err)
	}
	if res.MatchedCount == 0 {
		return m.missOrConflict(ctx, cartID)
	}
	return nil
}

// missOrConflict distinguishes "no such cart" from "cart exists but the status
// filter did not match".
func (m *mongoCartRepository) missOrConflict(ctx context.Context, cartID string) error {
	filter, err := cartIDFilter(cartID)
	if err != nil {
		return err
	}
	n, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to check cart existence: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return ErrStatusConflict
}

// CreateCartIndexes sets up the cart collection indexes. The TTL index only
// expires abandoned active carts; purchased carts are kept.
func CreateCartIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(90 * 24 * 60 * 60). // 90 days TTL
				SetPartialFilterExpression(bson.M{"status": domain.CartStatusActive}),
		},
	}

	if _, err := db.Collection("carts").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}
