// Package mongoledger archives verification attempts in a MongoDB collection,
// optionally expiring them after a retention period.
package mongoledger

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/mfakit/svc/mfa"
)

var (
	ErrIndexFailed  = errors.New("mongoledger: create indexes failed")
	ErrInsertFailed = errors.New("mongoledger: insert failed")
)

const duplicateKeyCode = 11000

// DefaultCollection is used when New is given an empty name.
const DefaultCollection = "verification_attempts"

type attemptDoc struct {
	ID           string    `bson:"_id"`
	PrincipalID  string    `bson:"principal_id"`
	FactorID     string    `bson:"factor_id,omitempty"`
	FactorType   string    `bson:"factor_type,omitempty"`
	Outcome      string    `bson:"outcome"`
	Reason       string    `bson:"reason,omitempty"`
	ClientOrigin string    `bson:"client_origin,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toDoc(a mfa.Attempt) attemptDoc {
	d := attemptDoc{
		ID:           a.ID.String(),
		PrincipalID:  a.PrincipalID.String(),
		FactorType:   string(a.FactorType),
		Outcome:      string(a.Outcome),
		Reason:       a.Reason,
		ClientOrigin: a.ClientOrigin,
		CreatedAt:    a.CreatedAt.UTC(),
	}
	if a.FactorID != nil {
		d.FactorID = a.FactorID.String()
	}
	return d
}

// Sink satisfies audit.BatchWriter[mfa.Attempt].
type Sink struct {
	coll      *mongo.Collection
	retention time.Duration
}

type Option func(*Sink)

// WithRetention lets MongoDB delete attempts older than d. Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(s *Sink) {
		s.retention = d
	}
}

func New(db *mongo.Database, collection string, opts ...Option) *Sink {
	if collection == "" {
		collection = DefaultCollection
	}
	s := &Sink{coll: db.Collection(collection)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the per-principal lookup index and, with a retention
// set, the TTL index on created_at. Existing identical indexes are left as is.
func (s *Sink) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "principal_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("principal_created"),
	}}
	if s.retention > 0 {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("created_at_ttl").
				SetExpireAfterSeconds(int32(s.retention / time.Second)),
		})
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	return nil
}

// StoreBatch inserts attempts unordered. Attempt IDs are the document IDs, so a
// batch replayed after a partial failure only reports the records it could not
// write; duplicates of already stored attempts are ignored.
func (s *Sink) StoreBatch(ctx context.Context, attempts []mfa.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	docs := make([]any, 0, len(attempts))
	for _, a := range attempts {
		docs = append(docs, toDoc(a))
	}

	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil || onlyDuplicates(err) {
		return nil
	}
	return errors.Join(ErrInsertFailed, err)
}

func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return false
		}
	}
	return true
}
