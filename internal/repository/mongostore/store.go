// Package mongostore is a MongoDB implementation of repository.Store.
// Ratings are appended with $push so concurrent raters never overwrite
// each other.
package mongostore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

const (
	pitchesCollection    = "pitches"
	categoriesCollection = "categories"
	settingsCollection   = "settings"
)

// Store provides data access backed by MongoDB
type Store struct {
	client     *mongo.Client
	pitches    *mongo.Collection
	categories *mongo.Collection
	settings   *mongo.Collection
}

var _ repository.Store = (*Store)(nil)

type pitchDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Presenter   string             `bson:"presenter"`
	ImageURL    string             `bson:"imageUrl"`
	Category    string             `bson:"category"`
	Visible     bool               `bson:"visible"`
	Ratings     []float64          `bson:"ratings"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d pitchDoc) model() models.Pitch {
	ratings := d.Ratings
	if ratings == nil {
		ratings = []float64{}
	}
	return models.Pitch{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Presenter:   d.Presenter,
		ImageURL:    d.ImageURL,
		Category:    d.Category,
		Visible:     d.Visible,
		Ratings:     ratings,
	}
}

type categoryDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	DisplayOrder int                `bson:"displayOrder"`
}

func (d categoryDoc) model() models.Category {
	return models.Category{ID: d.ID.Hex(), Name: d.Name, DisplayOrder: d.DisplayOrder}
}

type settingDoc struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// New connects to uri, verifies the connection and ensures indexes
func New(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connection URI is empty")
	}

	clientOptions := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:     client,
		pitches:    db.Collection(pitchesCollection),
		categories: db.Collection(categoriesCollection),
		settings:   db.Collection(settingsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}
	_, err = s.pitches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create pitch index: %w", err)
	}
	return nil
}

// Ping checks if the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.client.Ping(ctx, nil))
}

// Close disconnects the client
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Drop removes every collection; used by tests
func (s *Store) Drop(ctx context.Context) error {
	return s.pitches.Database().Drop(ctx)
}

// classify maps driver errors onto repository and application errors
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Transient(err)
	default:
		return err
	}
}

// objectID parses a hex id; malformed ids cannot exist so they are not found
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrNotFound
	}
	return oid, nil
}

// ==================== Pitch Methods ====================

func (s *Store) ListPitches(ctx context.Context) ([]models.Pitch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.pitches.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var docs []pitchDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	pitches := make([]models.Pitch, 0, len(docs))
	for _, d := range docs {
		pitches = append(pitches, d.model())
	}
	return pitches, nil
}

func (s *Store) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc pitchDoc
	if err := s.pitches.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	p := doc.model()
	return &p, nil
}

func (s *Store) CreatePitch(ctx context.Context, p models.Pitch) (string, error) {
	doc := pitchDoc{
		ID:          primitive.NewObjectID(),
		Title:       p.Title,
		Description: p.Description,
		Presenter:   p.Presenter,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Visible:     p.Visible,
		Ratings:     []float64{},
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.pitches.InsertOne(ctx, doc); err != nil {
		return "", classify(err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) UpdatePitch(ctx context.Context, id string, u repository.PitchUpdate) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	set := bson.M{}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Presenter != nil {
		set["presenter"] = *u.Presenter
	}
	if u.ImageURL != nil {
		set["imageUrl"] = *u.ImageURL
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Visible != nil {
		set["visible"] = *u.Visible
	}

	if len(set) == 0 {
		return s.pitchExists(ctx, oid)
	}

	result, err := s.pitches.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePitch(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := s.pitches.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return classify(err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) AppendRating(ctx context.Context, id string, score float64) ([]float64, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc pitchDoc
	err = s.pitches.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"ratings": score}}, opts).Decode(&doc)
	if err != nil {
		return nil, classify(err)
	}
	return doc.model().Ratings, nil
}

func (s *Store) CompareAndAppendRatings(ctx context.Context, id string, expected, additions []float64) ([]float64, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	if expected == nil {
		expected = []float64{}
	}
	if additions == nil {
		additions = []float64{}
	}

	filter := bson.M{"_id": oid, "ratings": expected}
	update := bson.M{"$push": bson.M{"ratings": bson.M{"$each": additions}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc pitchDoc
	err = s.pitches.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.model().Ratings, nil
	}
	if !stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, classify(err)
	}

	// Either the pitch is gone or its ratings moved on
	current, getErr := s.GetPitch(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return current.Ratings, repository.ErrRatingsChanged
}

func (s *Store) ClearRatings(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := s.pitches.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"ratings": []float64{}}})
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ClearAllRatings(ctx context.Context) (int64, error) {
	filter := bson.M{"ratings.0": bson.M{"$exists": true}}
	result, err := s.pitches.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"ratings": []float64{}}})
	if err != nil {
		return 0, classify(err)
	}
	return result.ModifiedCount, nil
}

func (s *Store) pitchExists(ctx context.Context, oid primitive.ObjectID) error {
	n, err := s.pitches.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ==================== Category Methods ====================

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "displayOrder", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.categories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	categories := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		categories = append(categories, d.model())
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc categoryDoc
	if err := s.categories.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	c := doc.model()
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	next := 1
	var last categoryDoc
	err := s.categories.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "displayOrder", Value: -1}})).Decode(&last)
	switch {
	case err == nil:
		next = last.DisplayOrder + 1
	case !stderrors.Is(err, mongo.ErrNoDocuments):
		return nil, classify(err)
	}

	doc := categoryDoc{ID: primitive.NewObjectID(), Name: name, DisplayOrder: next}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		return nil, classify(err)
	}
	c := doc.model()
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := s.categories.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return classify(err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) SeedCategories(ctx context.Context, names []string) (int, error) {
	n, err := s.categories.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, classify(err)
	}
	if n > 0 || len(names) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(names))
	for i, name := range names {
		docs = append(docs, categoryDoc{ID: primitive.NewObjectID(), Name: name, DisplayOrder: i + 1})
	}
	if _, err := s.categories.InsertMany(ctx, docs); err != nil {
		// Another instance seeded first
		if mongo.IsDuplicateKeyError(err) {
			return 0, nil
		}
		return 0, classify(err)
	}
	return len(names), nil
}

// ==================== Settings Methods ====================

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var doc settingDoc
	if err := s.settings.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		return "", classify(err)
	}
	return doc.Value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.settings.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": bson.M{"value": value}}, opts)
	return classify(err)
}
