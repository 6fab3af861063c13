package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// issueDocument is the stored shape of an issue: one collection per project.
type issueDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	IssueTitle string             `bson:"issue_title"`
	IssueText  string             `bson:"issue_text"`
	CreatedBy  string             `bson:"created_by"`
	AssignedTo string             `bson:"assigned_to"`
	StatusText string             `bson:"status_text"`
	Open       bool               `bson:"open"`
	CreatedOn  time.Time          `bson:"created_on"`
	UpdatedOn  time.Time          `bson:"updated_on"`
}

type mongoIssueRepository struct {
	db *mongo.Database
}

// NewMongoIssueRepository instantiates a repository over db.
func NewMongoIssueRepository(db *mongo.Database) IssueRepository {
	return &mongoIssueRepository{db: db}
}

func (r *mongoIssueRepository) List(ctx context.Context, project string, filter domain.IssueFilter) ([]domain.Issue, error) {
	if filter.MatchNone {
		return []domain.Issue{}, nil
	}
	query, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: domain.FieldUpdatedOn, Value: -1}})
	cur, err := r.db.Collection(project).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find issues: %w", err)
	}
	var docs []issueDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	issues := make([]domain.Issue, 0, len(docs))
	for i := range docs {
		issues = append(issues, docs[i].toDomain())
	}
	return issues, nil
}

func (r *mongoIssueRepository) Create(ctx context.Context, project string, issue *domain.Issue) error {
	doc := fromDomain(issue)
	doc.ID = primitive.NewObjectID()
	if _, err := r.db.Collection(project).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	issue.ID = doc.ID.Hex()
	return nil
}

func (r *mongoIssueRepository) Update(ctx context.Context, project, id string, changes domain.IssueChanges) (*domain.Issue, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrIssueNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := r.db.Collection(project).FindOneAndUpdate(ctx, bson.M{"_id": oid}, mongoUpdatePipeline(changes), opts)
	var doc issueDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}
	issue := doc.toDomain()
	return &issue, nil
}

func (r *mongoIssueRepository) Delete(ctx context.Context, project, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrIssueNotFound
	}
	res, err := r.db.Collection(project).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if res.DeletedCount != 1 {
		return ErrIssueNotFound
	}
	return nil
}

func (r *mongoIssueRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// mongoFilter translates an IssueFilter into an equality query document.
func mongoFilter(filter domain.IssueFilter) (bson.M, error) {
	query := bson.M{}
	if filter.ID != nil {
		oid, err := primitive.ObjectIDFromHex(*filter.ID)
		if err != nil {
			return nil, fmt.Errorf("filter id: %w", err)
		}
		query[domain.FieldID] = oid
	}
	setIfPresent(query, domain.FieldIssueTitle, filter.IssueTitle)
	setIfPresent(query, domain.FieldIssueText, filter.IssueText)
	setIfPresent(query, domain.FieldCreatedBy, filter.CreatedBy)
	setIfPresent(query, domain.FieldAssignedTo, filter.AssignedTo)
	setIfPresent(query, domain.FieldStatusText, filter.StatusText)
	if filter.Open != nil {
		query[domain.FieldOpen] = *filter.Open
	}
	if filter.CreatedOn != nil {
		query[domain.FieldCreatedOn] = *filter.CreatedOn
	}
	if filter.UpdatedOn != nil {
		query[domain.FieldUpdatedOn] = *filter.UpdatedOn
	}
	return query, nil
}

// mongoUpdatePipeline builds a single-stage update pipeline. Client values are
// wrapped in $literal so strings starting with "$" are never read as paths.
// updated_on never moves backwards, matching domain.NextUpdatedOn.
func mongoUpdatePipeline(changes domain.IssueChanges) mongo.Pipeline {
	fields := changes.Fields()
	set := bson.D{}
	for _, key := range domain.MutableFields {
		if value, ok := fields[key]; ok {
			set = append(set, bson.E{Key: key, Value: bson.M{"$literal": value}})
		}
	}
	set = append(set, bson.E{Key: domain.FieldUpdatedOn, Value: bson.M{"$max": bson.A{
		changes.UpdatedOn,
		bson.M{"$add": bson.A{"$" + domain.FieldUpdatedOn, domain.UpdateResolution.Milliseconds()}},
	}}})
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

func setIfPresent(query bson.M, key string, value *string) {
	if value != nil {
		query[key] = *value
	}
}

func fromDomain(issue *domain.Issue) issueDocument {
	return issueDocument{
		IssueTitle: issue.IssueTitle,
		IssueText:  issue.IssueText,
		CreatedBy:  issue.CreatedBy,
		AssignedTo: issue.AssignedTo,
		StatusText: issue.StatusText,
		Open:       issue.Open,
		CreatedOn:  issue.CreatedOn,
		UpdatedOn:  issue.UpdatedOn,
	}
}

func (d issueDocument) toDomain() domain.Issue {
	return domain.Issue{
		ID:         d.ID.Hex(),
		IssueTitle: d.IssueTitle,
		IssueText:  d.IssueText,
		CreatedBy:  d.CreatedBy,
		AssignedTo: d.AssignedTo,
		StatusText: d.StatusText,
		Open:       d.Open,
		CreatedOn:  d.CreatedOn,
		UpdatedOn:  d.UpdatedOn,
	}
}
