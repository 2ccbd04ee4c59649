// internal/database/link_repository.go
package database

import (
	"context"
	"fmt"
	"fritter/internal/models"
	"fritter/internal/utils"
	"log"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LinkDocument represents the MongoDB schema for an evidence ledger entry.
type LinkDocument struct {
	ID        string   `bson:"_id"`
	FreetID   string   `bson:"freetid"`
	IsApprove bool     `bson:"isapprove"`
	URL       string   `bson:"url"`
	Count     int      `bson:"count"`
	Users     []string `bson:"users"`
}

func linkFilter(freetID uuid.UUID, polarity models.Polarity, url string) bson.M {
	return bson.M{
		"freetid":   freetID.String(),
		"isapprove": polarity.IsApprove(),
		"url":       url,
	}
}

func documentToLink(doc *LinkDocument) (*models.EvidenceLink, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid link ID: %v", err)
	}
	freetID, err := uuid.Parse(doc.FreetID)
	if err != nil {
		return nil, fmt.Errorf("invalid freet ID: %v", err)
	}

	users := make([]uuid.UUID, 0, len(doc.Users))
	for _, u := range doc.Users {
		userID, err := uuid.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("invalid contributor ID: %v", err)
		}
		users = append(users, userID)
	}

	polarity := models.Disapprove
	if doc.IsApprove {
		polarity = models.Approve
	}
	return &models.EvidenceLink{
		ID:       id,
		FreetID:  freetID,
		Polarity: polarity,
		URL:      doc.URL,
		Count:    doc.Count,
		Users:    users,
	}, nil
}

// AddContribution upserts the entry for (freet, polarity, url) and adds user
// to it in one atomic update. The filter excludes entries that already list
// user, so a repeat either misses and collides on the unique index, or finds
// nothing to change; both cases return the stored entry untouched.
func (m *MongoDB) AddContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error) {
	filter := linkFilter(freetID, polarity, url)
	filter["users"] = bson.M{"$ne": userID.String()}

	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$push":        bson.M{"users": userID.String()},
		"$setOnInsert": bson.M{"_id": uuid.New().String()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc LinkDocument
	err := m.Links.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, getErr := m.GetLink(ctx, freetID, polarity, url)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to add link contribution", err)
	}
	return documentToLink(&doc)
}

// RemoveContribution pulls user from the entry, deleting it once its count
// reaches zero.
func (m *MongoDB) RemoveContribution(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string, userID uuid.UUID) (*models.EvidenceLink, error) {
	filter := linkFilter(freetID, polarity, url)
	filter["users"] = userID.String()

	update := bson.M{
		"$inc":  bson.M{"count": -1},
		"$pull": bson.M{"users": userID.String()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc LinkDocument
	err := m.Links.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		// user was not a contributor
		return m.GetLink(ctx, freetID, polarity, url)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to remove link contribution", err)
	}

	if doc.Count <= 0 {
		if _, err := m.Links.DeleteOne(ctx, bson.M{"_id": doc.ID, "count": bson.M{"$lte": 0}}); err != nil {
			return nil, utils.NewAppError(utils.ErrDatabase, "failed to delete empty link", err)
		}
		return nil, nil
	}
	return documentToLink(&doc)
}

// GetLink returns the ledger entry or nil when there is none.
func (m *MongoDB) GetLink(ctx context.Context, freetID uuid.UUID, polarity models.Polarity, url string) (*models.EvidenceLink, error) {
	var doc LinkDocument
	err := m.Links.FindOne(ctx, linkFilter(freetID, polarity, url)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get link", err)
	}
	return documentToLink(&doc)
}

// ListLinks returns the ledger entries for one polarity of a freet.
func (m *MongoDB) ListLinks(ctx context.Context, freetID uuid.UUID, polarity models.Polarity) ([]*models.EvidenceLink, error) {
	filter := bson.M{
		"freetid":   freetID.String(),
		"isapprove": polarity.IsApprove(),
		"count":     bson.M{"$gt": 0},
	}
	opts := options.Find().SetSort(bson.D{{Key: "count", Value: -1}, {Key: "url", Value: 1}})

	cursor, err := m.Links.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query links", err)
	}
	defer cursor.Close(ctx)

	links := make([]*models.EvidenceLink, 0)
	for cursor.Next(ctx) {
		var doc LinkDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("Error decoding link document: %v", err)
			continue
		}
		link, err := documentToLink(&doc)
		if err != nil {
			log.Printf("Error converting link document: %v", err)
			continue
		}
		links = append(links, link)
	}

	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	// server-side string collation may differ from byte order
	sortLinks(links)
	return links, nil
}

// DeleteLinksForFreet removes every ledger entry of a freet.
func (m *MongoDB) DeleteLinksForFreet(ctx context.Context, freetID uuid.UUID) error {
	if _, err := m.Links.DeleteMany(ctx, bson.M{"freetid": freetID.String()}); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete links", err)
	}
	return nil
}
