package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	issuesCollection   = "issues"
	timelineCollection = "timelines"
	usersCollection    = "users"
	paymentsCollection = "payments"
)

// MongoStore is a Store backed by a MongoDB database.
//
// Multi-document transactions need a replica set. With transactions disabled,
// RunInTransaction executes fn directly and a failure part way through leaves
// earlier writes in place.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// NewMongoStore binds a connected client to database.
func NewMongoStore(client *mongo.Client, database string, transactions bool) *MongoStore {
	return &MongoStore{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
	}
}

// Transactional reports whether RunInTransaction is atomic.
func (s *MongoStore) Transactional() bool {
	return s.transactions
}

// Repos implements Store.
func (s *MongoStore) Repos() Repositories {
	return Repositories{
		Issues:   &mongoIssues{coll: s.db.Collection(issuesCollection)},
		Timeline: &mongoTimeline{coll: s.db.Collection(timelineCollection)},
		Users:    &mongoUsers{coll: s.db.Collection(usersCollection)},
		Payments: &mongoPayments{coll: s.db.Collection(paymentsCollection)},
	}
}

// RunInTransaction implements Store.
func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if !s.transactions {
		return fn(ctx, s.Repos())
	}
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.Repos())
	})
	return err
}

// Ping implements Store.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and listing indexes the repositories rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		timelineCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		issuesCollection: {
			{Keys: bson.D{{Key: "isBoosted", Value: -1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "reporterEmail", Value: 1}}},
			{Keys: bson.D{{Key: "assignedStaff.email", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
