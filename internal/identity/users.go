package identity

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepo persists users in the document store.
type UserRepo struct {
	col *mongo.Collection
}

// NewUserRepo creates a repo over the users collection.
func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection("users")}
}

func (r *UserRepo) filterDoc(f Filter) bson.M {
	doc := bson.M{}
	if f.ID != "" {
		doc["_id"] = f.ID
	}
	if f.Username != "" {
		doc["username"] = f.Username
	}
	if f.Role != "" {
		doc["role"] = f.Role
	}
	return doc
}

// Find returns the first user matching the filter.
func (r *UserRepo) Find(ctx context.Context, f Filter) (*User, error) {
	var u User
	if err := r.col.FindOne(ctx, r.filterDoc(f)).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Insert writes a new user. The caller is responsible for id assignment and
// for hashing the password beforehand.
func (r *UserRepo) Insert(ctx context.Context, u User) (User, error) {
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Delete removes a user by id.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users with the given role, password redacted, ordered by
// username.
func (r *UserRepo) List(ctx context.Context, role string) ([]User, error) {
	opts := options.Find().SetSort(bson.M{"username": 1})
	cur, err := r.col.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// SetPassword replaces the stored credential hash for the named user.
func (r *UserRepo) SetPassword(ctx context.Context, username, hash string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"username": username}, bson.M{
		"$set": bson.M{"password": hash},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
