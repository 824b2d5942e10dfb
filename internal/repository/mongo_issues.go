package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicfix/civicfix-server/internal/domain"
)

type staffDocument struct {
	Email      string    `bson:"email"`
	Name       string    `bson:"name"`
	AssignedAt time.Time `bson:"assignedAt"`
}

type issueDocument struct {
	ID            string         `bson:"_id"`
	Title         string         `bson:"title"`
	Description   string         `bson:"description"`
	Category      string         `bson:"category"`
	Location      string         `bson:"location"`
	ImageURL      string         `bson:"image,omitempty"`
	ReporterEmail string         `bson:"reporterEmail"`
	ReporterName  string         `bson:"reporterName"`
	Status        string         `bson:"status"`
	IsBoosted     bool           `bson:"isBoosted"`
	Upvotes       int            `bson:"upvotes"`
	UpvotedBy     []string       `bson:"upvotedBy"`
	AssignedStaff *staffDocument `bson:"assignedStaff"`
	CreatedAt     time.Time      `bson:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt"`
}

func toIssueDocument(issue *domain.Issue) issueDocument {
	doc := issueDocument{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		Category:      string(issue.Category),
		Location:      issue.Location,
		ImageURL:      issue.ImageURL,
		ReporterEmail: issue.ReporterEmail,
		ReporterName:  issue.ReporterName,
		Status:        string(issue.Status),
		IsBoosted:     issue.IsBoosted,
		Upvotes:       issue.Upvotes,
		UpvotedBy:     append([]string{}, issue.Voters...),
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
	}
	if issue.AssignedStaff != nil {
		doc.AssignedStaff = &staffDocument{
			Email:      issue.AssignedStaff.Email,
			Name:       issue.AssignedStaff.Name,
			AssignedAt: issue.AssignedStaff.AssignedAt,
		}
	}
	return doc
}

func (d issueDocument) toDomain() domain.Issue {
	issue := domain.Issue{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		Category:      domain.IssueCategory(d.Category),
		Location:      d.Location,
		ImageURL:      d.ImageURL,
		ReporterEmail: d.ReporterEmail,
		ReporterName:  d.ReporterName,
		Status:        domain.IssueStatus(d.Status),
		IsBoosted:     d.IsBoosted,
		Upvotes:       d.Upvotes,
		Voters:        d.UpvotedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.AssignedStaff != nil {
		issue.AssignedStaff = &domain.StaffAssignment{
			Email:      d.AssignedStaff.Email,
			Name:       d.AssignedStaff.Name,
			AssignedAt: d.AssignedStaff.AssignedAt,
		}
	}
	return issue
}

// buildMongoIssueFilter renders filter as a query document.
func buildMongoIssueFilter(filter IssueFilter) bson.M {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.Category != nil {
		query["category"] = string(*filter.Category)
	}
	if filter.ReporterEmail != nil {
		query["reporterEmail"] = *filter.ReporterEmail
	}
	if filter.AssigneeEmail != nil {
		query["assignedStaff.email"] = *filter.AssigneeEmail
	}
	if filter.Boosted != nil {
		query["isBoosted"] = *filter.Boosted
	}
	if search := filter.search(); search != "" {
		pattern := regexp.QuoteMeta(search)
		query["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return query
}

type mongoIssues struct {
	coll *mongo.Collection
}

func (r *mongoIssues) Create(ctx context.Context, issue *domain.Issue) error {
	_, err := r.coll.InsertOne(ctx, toIssueDocument(issue))
	return mapMongoError(err)
}

func (r *mongoIssues) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	var doc issueDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	issue := doc.toDomain()
	return &issue, nil
}

func (r *mongoIssues) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "isBoosted", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, buildMongoIssueFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []issueDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Issue, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toDomain())
	}
	return result, nil
}

func (r *mongoIssues) Count(ctx context.Context, filter IssueFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, buildMongoIssueFilter(filter))
}

func (r *mongoIssues) UpdateDetails(ctx context.Context, issue *domain.Issue) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": issue.ID}, bson.M{"$set": bson.M{
		"title":       issue.Title,
		"description": issue.Description,
		"category":    string(issue.Category),
		"location":    issue.Location,
		"image":       issue.ImageURL,
		"updatedAt":   issue.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// updateIf applies update to the document matching filter and reports whether one matched.
func (r *mongoIssues) updateIf(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoIssues) CompareAndSetStatus(ctx context.Context, id string, from, to domain.IssueStatus) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": nowUTC()}})
}

func (r *mongoIssues) SetStatus(ctx context.Context, id string, to domain.IssueStatus) error {
	ok, err := r.updateIf(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": nowUTC()}})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *mongoIssues) Assign(ctx context.Context, id string, assignment domain.StaffAssignment) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "assignedStaff": nil},
		bson.M{"$set": bson.M{
			"assignedStaff": staffDocument{Email: assignment.Email, Name: assignment.Name, AssignedAt: assignment.AssignedAt},
			"updatedAt":     nowUTC(),
		}})
}

func (r *mongoIssues) AddVoter(ctx context.Context, id, voter string) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "upvotedBy": bson.M{"$ne": voter}},
		bson.M{"$inc": bson.M{"upvotes": 1}, "$addToSet": bson.M{"upvotedBy": voter}})
}

func (r *mongoIssues) MarkBoosted(ctx context.Context, id string) (bool, error) {
	return r.updateIf(ctx,
		bson.M{"_id": id, "isBoosted": false},
		bson.M{"$set": bson.M{"isBoosted": true, "updatedAt": nowUTC()}})
}

func (r *mongoIssues) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type timelineDocument struct {
	ID        string    `bson:"_id"`
	IssueID   string    `bson:"issueId"`
	Status    string    `bson:"status"`
	Message   string    `bson:"message"`
	UpdatedBy string    `bson:"updatedBy"`
	CreatedAt time.Time `bson:"createdAt"`
}

type mongoTimeline struct {
	coll *mongo.Collection
}

func (r *mongoTimeline) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	_, err := r.coll.InsertOne(ctx, timelineDocument{
		ID:        entry.ID,
		IssueID:   entry.IssueID,
		Status:    string(entry.Status),
		Message:   entry.Message,
		UpdatedBy: entry.UpdatedBy,
		CreatedAt: entry.CreatedAt,
	})
	return mapMongoError(err)
}

func (r *mongoTimeline) ListByIssue(ctx context.Context, issueID string) ([]domain.TimelineEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"issueId": issueID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []timelineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.TimelineEntry, 0, len(docs))
	for _, doc := range docs {
		result = append(result, domain.TimelineEntry{
			ID:        doc.ID,
			IssueID:   doc.IssueID,
			Status:    domain.IssueStatus(doc.Status),
			Message:   doc.Message,
			UpdatedBy: doc.UpdatedBy,
			CreatedAt: doc.CreatedAt,
		})
	}
	return result, nil
}
