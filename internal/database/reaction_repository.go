// internal/database/reaction_repository.go
package database

import (
	"context"
	"fmt"
	"fritter/internal/models"
	"fritter/internal/utils"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReactionDocument represents the MongoDB schema for a like, approve or
// disapprove record. The kind is implied by the collection.
type ReactionDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userid"`
	FreetID   string    `bson:"freetid"`
	CreatedAt time.Time `bson:"createdat"`
}

func (m *MongoDB) reactionCollection(kind models.ReactionKind) (*mongo.Collection, error) {
	switch kind {
	case models.LikeReaction:
		return m.Likes, nil
	case models.ApproveReaction:
		return m.Approves, nil
	case models.DisapproveReaction:
		return m.Disapproves, nil
	}
	return nil, utils.NewAppError(utils.ErrInvalidInput, fmt.Sprintf("unknown reaction kind %q", kind), nil)
}

func documentToReaction(kind models.ReactionKind, doc *ReactionDocument) (*models.Reaction, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid reaction ID: %v", err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %v", err)
	}
	freetID, err := uuid.Parse(doc.FreetID)
	if err != nil {
		return nil, fmt.Errorf("invalid freet ID: %v", err)
	}
	return &models.Reaction{
		ID:        id,
		Kind:      kind,
		UserID:    userID,
		FreetID:   freetID,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// AddReaction inserts a record. The unique (userid, freetid) index turns a
// second insert into utils.ErrAlreadyReacted.
func (m *MongoDB) AddReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error) {
	coll, err := m.reactionCollection(kind)
	if err != nil {
		return nil, err
	}

	doc := &ReactionDocument{
		ID:        uuid.New().String(),
		UserID:    userID.String(),
		FreetID:   freetID.String(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, utils.NewAppError(utils.ErrAlreadyReacted, fmt.Sprintf("user already has a %s record", kind), nil)
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to add reaction", err)
	}
	return documentToReaction(kind, doc)
}

// FindReaction returns the record or nil when there is none.
func (m *MongoDB) FindReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (*models.Reaction, error) {
	coll, err := m.reactionCollection(kind)
	if err != nil {
		return nil, err
	}

	var doc ReactionDocument
	err = coll.FindOne(ctx, bson.M{"userid": userID.String(), "freetid": freetID.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to find reaction", err)
	}
	return documentToReaction(kind, &doc)
}

// DeleteReaction reports whether a record was removed.
func (m *MongoDB) DeleteReaction(ctx context.Context, kind models.ReactionKind, userID, freetID uuid.UUID) (bool, error) {
	coll, err := m.reactionCollection(kind)
	if err != nil {
		return false, err
	}

	result, err := coll.DeleteOne(ctx, bson.M{"userid": userID.String(), "freetid": freetID.String()})
	if err != nil {
		return false, utils.NewAppError(utils.ErrDatabase, "failed to delete reaction", err)
	}
	return result.DeletedCount > 0, nil
}

// ListReactionsByUser returns the user's records of one kind, newest first.
func (m *MongoDB) ListReactionsByUser(ctx context.Context, kind models.ReactionKind, userID uuid.UUID) ([]*models.Reaction, error) {
	return m.findReactions(ctx, kind, bson.M{"userid": userID.String()}, -1)
}

// ListReactionsForFreet returns a freet's records of one kind, oldest first.
func (m *MongoDB) ListReactionsForFreet(ctx context.Context, kind models.ReactionKind, freetID uuid.UUID) ([]*models.Reaction, error) {
	return m.findReactions(ctx, kind, bson.M{"freetid": freetID.String()}, 1)
}

func (m *MongoDB) findReactions(ctx context.Context, kind models.ReactionKind, filter bson.M, order int) ([]*models.Reaction, error) {
	coll, err := m.reactionCollection(kind)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: order}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query reactions", err)
	}
	defer cursor.Close(ctx)

	reactions := make([]*models.Reaction, 0)
	for cursor.Next(ctx) {
		var doc ReactionDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("Error decoding reaction document: %v", err)
			continue
		}
		reaction, err := documentToReaction(kind, &doc)
		if err != nil {
			log.Printf("Error converting reaction document: %v", err)
			continue
		}
		reactions = append(reactions, reaction)
	}

	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return reactions, nil
}

// DeleteReactionsForFreet removes every like, approve and disapprove record
// of a freet.
func (m *MongoDB) DeleteReactionsForFreet(ctx context.Context, freetID uuid.UUID) error {
	filter := bson.M{"freetid": freetID.String()}
	for _, coll := range []*mongo.Collection{m.Likes, m.Approves, m.Disapproves} {
		if _, err := coll.DeleteMany(ctx, filter); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to delete reactions from "+coll.Name(), err)
		}
	}
	return nil
}
