package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicfix/civicfix-server/internal/domain"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	PhotoURL     string    `bson:"photoURL,omitempty"`
	Role         string    `bson:"role"`
	IssueCount   int       `bson:"issueCount"`
	IsPremium    bool      `bson:"isPremium"`
	IsBlocked    bool      `bson:"isBlocked"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		PhotoURL:     d.PhotoURL,
		Role:         domain.Role(d.Role),
		IssueCount:   d.IssueCount,
		IsPremium:    d.IsPremium,
		IsBlocked:    d.IsBlocked,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Emails are stored lower-cased so the unique index is case-insensitive.
func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, user *domain.User) error {
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Name:         user.Name,
		Email:        emailKey(user.Email),
		PasswordHash: user.PasswordHash,
		PhotoURL:     user.PhotoURL,
		Role:         string(user.Role),
		IssueCount:   user.IssueCount,
		IsPremium:    user.IsPremium,
		IsBlocked:    user.IsBlocked,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	return mapMongoError(err)
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	user := doc.toDomain()
	return &user, nil
}

func (r *mongoUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": emailKey(email)})
}

func userQuery(filter UserFilter) bson.M {
	query := bson.M{}
	if filter.Role != nil {
		query["role"] = string(*filter.Role)
	}
	return query
}

func (r *mongoUsers) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "email", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, userQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toDomain())
	}
	return result, nil
}

func (r *mongoUsers) Count(ctx context.Context, filter UserFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, userQuery(filter))
}

func (r *mongoUsers) update(ctx context.Context, filter bson.M, update any) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": string(role), "updatedAt": nowUTC()}})
}

func (r *mongoUsers) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isBlocked": blocked, "updatedAt": nowUTC()}})
}

func (r *mongoUsers) SetPremium(ctx context.Context, email string, premium bool) error {
	return r.update(ctx, bson.M{"email": emailKey(email)}, bson.M{"$set": bson.M{"isPremium": premium, "updatedAt": nowUTC()}})
}

// AdjustIssueCount uses a pipeline update so the clamp is evaluated server side.
func (r *mongoUsers) AdjustIssueCount(ctx context.Context, email string, delta int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"issueCount": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$issueCount", delta}}}},
			"updatedAt":  nowUTC(),
		}}},
	}
	return r.update(ctx, bson.M{"email": emailKey(email)}, pipeline)
}

type paymentDocument struct {
	ID        string    `bson:"_id"`
	SessionID string    `bson:"sessionId"`
	Type      string    `bson:"type"`
	IssueID   string    `bson:"issueId,omitempty"`
	UserEmail string    `bson:"userEmail"`
	Amount    int64     `bson:"amount"`
	Currency  string    `bson:"currency"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d paymentDocument) toDomain() domain.Payment {
	return domain.Payment{
		ID:        d.ID,
		SessionID: d.SessionID,
		Type:      domain.PaymentType(d.Type),
		IssueID:   d.IssueID,
		UserEmail: d.UserEmail,
		Amount:    d.Amount,
		Currency:  d.Currency,
		CreatedAt: d.CreatedAt,
	}
}

type mongoPayments struct {
	coll *mongo.Collection
}

func (r *mongoPayments) Create(ctx context.Context, payment *domain.Payment) error {
	_, err := r.coll.InsertOne(ctx, paymentDocument{
		ID:        payment.ID,
		SessionID: payment.SessionID,
		Type:      string(payment.Type),
		IssueID:   payment.IssueID,
		UserEmail: emailKey(payment.UserEmail),
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		CreatedAt: payment.CreatedAt,
	})
	return mapMongoError(err)
}

func (r *mongoPayments) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	var doc paymentDocument
	if err := r.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	payment := doc.toDomain()
	return &payment, nil
}

func (r *mongoPayments) List(ctx context.Context, filter PaymentFilter) ([]domain.Payment, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := bson.M{}
	if filter.UserEmail != nil {
		query["userEmail"] = emailKey(*filter.UserEmail)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Payment, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toDomain())
	}
	return result, nil
}

func (r *mongoPayments) Summary(ctx context.Context) (PaymentSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return PaymentSummary{}, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count   int64 `bson:"count"`
		Revenue int64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return PaymentSummary{}, err
	}
	if len(rows) == 0 {
		return PaymentSummary{}, nil
	}
	return PaymentSummary{Count: rows[0].Count, Revenue: rows[0].Revenue}, nil
}
