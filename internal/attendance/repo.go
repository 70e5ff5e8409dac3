package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists attendance records in the document store.
type Repository struct {
	col *mongo.Collection
}

// NewRepository creates a repo over the attendance collection.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{col: db.Collection("attendance")}
}

// Insert writes a new record, assigning id and date when unset.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FindInWindow returns the record for the user dated within [from, to),
// or nil when none exists.
func (r *Repository) FindInWindow(ctx context.Context, userID string, from, to time.Time) (*Record, error) {
	var rec Record
	err := r.col.FindOne(ctx, bson.M{
		"userId": userID,
		"date":   bson.M{"$gte": from, "$lt": to},
	}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpdateStatus sets the status of an existing record.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateOwned updates a record only when it belongs to the given user and
// returns the updated record. A foreign or missing record is ErrNotFound
// either way, so existence of another student's record is never revealed.
func (r *Repository) UpdateOwned(ctx context.Context, id, userID, status string) (*Record, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec Record
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"status": status}},
		opts,
	).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// DeleteOwned removes a record only when it belongs to the given user.
func (r *Repository) DeleteOwned(ctx context.Context, id, userID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInWindow removes the user's record within [from, to). Deleting when
// no record exists is not an error.
func (r *Repository) DeleteInWindow(ctx context.Context, userID string, from, to time.Time) error {
	_, err := r.col.DeleteOne(ctx, bson.M{
		"userId": userID,
		"date":   bson.M{"$gte": from, "$lt": to},
	})
	return err
}

// ListByUser returns all records for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	opts := options.Find().SetSort(bson.M{"date": -1})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListInWindow returns every record dated within [from, to).
func (r *Repository) ListInWindow(ctx context.Context, from, to time.Time) ([]Record, error) {
	cur, err := r.col.Find(ctx, bson.M{"date": bson.M{"$gte": from, "$lt": to}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
