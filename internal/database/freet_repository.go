// internal/database/freet_repository.go
package database

import (
	"context"
	"fmt"
	"fritter/internal/models"
	"fritter/internal/utils"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// URL-keyed maps are stored as arrays: MongoDB field names may not contain
// '.', and nearly every URL does.

// LinkTallyDocument is one entry of a freet's approve/disapprove tally map.
type LinkTallyDocument struct {
	URL   string `bson:"url"`
	Count int    `bson:"count"`
}

// EvidenceListDocument is one user's ordered evidence list.
type EvidenceListDocument struct {
	UserID string   `bson:"userid"`
	Links  []string `bson:"links"`
}

// EvidenceMarkDocument is one (url, user) uniqueness mark.
type EvidenceMarkDocument struct {
	URL    string `bson:"url"`
	UserID string `bson:"userid"`
}

// FreetDocument represents the MongoDB schema for a freet.
type FreetDocument struct {
	ID                    string                 `bson:"_id"`
	AuthorID              string                 `bson:"authorid"`
	Content               string                 `bson:"content"`
	DateCreated           time.Time              `bson:"datecreated"`
	DateModified          time.Time              `bson:"datemodified"`
	Likes                 int                    `bson:"likes"`
	Approves              int                    `bson:"approves"`
	Disapproves           int                    `bson:"disapproves"`
	ApproveLinks          []LinkTallyDocument    `bson:"approvelinks"`
	DisapproveLinks       []LinkTallyDocument    `bson:"disapprovelinks"`
	Approvers             []EvidenceListDocument `bson:"approvers"`
	Disapprovers          []EvidenceListDocument `bson:"disapprovers"`
	UniqueApproveMarks    []EvidenceMarkDocument `bson:"uniqueapprovemarks"`
	UniqueDisapproveMarks []EvidenceMarkDocument `bson:"uniquedisapprovemarks"`
	Version               int64                  `bson:"version"`
}

// FreetToDocument converts a Freet model to a MongoDB document. Array fields
// are sorted so identical aggregates encode identically.
func FreetToDocument(freet *models.Freet) *FreetDocument {
	return &FreetDocument{
		ID:                    freet.ID.String(),
		AuthorID:              freet.AuthorID.String(),
		Content:               freet.Content,
		DateCreated:           freet.DateCreated,
		DateModified:          freet.DateModified,
		Likes:                 freet.Likes,
		Approves:              freet.Approves,
		Disapproves:           freet.Disapproves,
		ApproveLinks:          tallyToDocuments(freet.ApproveLinks),
		DisapproveLinks:       tallyToDocuments(freet.DisapproveLinks),
		Approvers:             evidenceToDocuments(freet.Approvers),
		Disapprovers:          evidenceToDocuments(freet.Disapprovers),
		UniqueApproveMarks:    marksToDocuments(freet.UniqueApproveMarks),
		UniqueDisapproveMarks: marksToDocuments(freet.UniqueDisapproveMarks),
		Version:               freet.Version,
	}
}

// DocumentToFreet converts a MongoDB document to a Freet model.
func DocumentToFreet(doc *FreetDocument) (*models.Freet, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid freet ID: %v", err)
	}

	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}

	freet := &models.Freet{
		ID:           id,
		AuthorID:     authorID,
		Content:      doc.Content,
		DateCreated:  doc.DateCreated,
		DateModified: doc.DateModified,
		Likes:        doc.Likes,
		Approves:     doc.Approves,
		Disapproves:  doc.Disapproves,
		Version:      doc.Version,
	}
	freet.EnsureMaps()

	for _, t := range doc.ApproveLinks {
		freet.ApproveLinks[t.URL] = t.Count
	}
	for _, t := range doc.DisapproveLinks {
		freet.DisapproveLinks[t.URL] = t.Count
	}
	if freet.Approvers, err = documentsToEvidence(doc.Approvers); err != nil {
		return nil, err
	}
	if freet.Disapprovers, err = documentsToEvidence(doc.Disapprovers); err != nil {
		return nil, err
	}
	if freet.UniqueApproveMarks, err = documentsToMarks(doc.UniqueApproveMarks); err != nil {
		return nil, err
	}
	if freet.UniqueDisapproveMarks, err = documentsToMarks(doc.UniqueDisapproveMarks); err != nil {
		return nil, err
	}
	return freet, nil
}

func tallyToDocuments(tally map[string]int) []LinkTallyDocument {
	docs := make([]LinkTallyDocument, 0, len(tally))
	for url, count := range tally {
		docs = append(docs, LinkTallyDocument{URL: url, Count: count})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URL < docs[j].URL })
	return docs
}

func evidenceToDocuments(evidence map[uuid.UUID][]string) []EvidenceListDocument {
	docs := make([]EvidenceListDocument, 0, len(evidence))
	for user, links := range evidence {
		docs = append(docs, EvidenceListDocument{UserID: user.String(), Links: append([]string{}, links...)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UserID < docs[j].UserID })
	return docs
}

func marksToDocuments(marks map[models.EvidenceMark]struct{}) []EvidenceMarkDocument {
	docs := make([]EvidenceMarkDocument, 0, len(marks))
	for mark := range marks {
		docs = append(docs, EvidenceMarkDocument{URL: mark.URL, UserID: mark.UserID.String()})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UserID != docs[j].UserID {
			return docs[i].UserID < docs[j].UserID
		}
		return docs[i].URL < docs[j].URL
	})
	return docs
}

func documentsToEvidence(docs []EvidenceListDocument) (map[uuid.UUID][]string, error) {
	evidence := make(map[uuid.UUID][]string, len(docs))
	for _, d := range docs {
		user, err := uuid.Parse(d.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid evidence user ID: %v", err)
		}
		links := d.Links
		if links == nil {
			links = []string{}
		}
		evidence[user] = links
	}
	return evidence, nil
}

func documentsToMarks(docs []EvidenceMarkDocument) (map[models.EvidenceMark]struct{}, error) {
	marks := make(map[models.EvidenceMark]struct{}, len(docs))
	for _, d := range docs {
		user, err := uuid.Parse(d.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid evidence mark user ID: %v", err)
		}
		marks[models.EvidenceMark{URL: d.URL, UserID: user}] = struct{}{}
	}
	return marks, nil
}

// CreateFreet inserts a new freet.
func (m *MongoDB) CreateFreet(ctx context.Context, freet *models.Freet) error {
	if _, err := m.Freets.InsertOne(ctx, FreetToDocument(freet)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "freet already exists", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to create freet", err)
	}
	return nil
}

// GetFreet retrieves a freet by its ID.
func (m *MongoDB) GetFreet(ctx context.Context, id uuid.UUID) (*models.Freet, error) {
	var doc FreetDocument

	err := m.Freets.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to get freet", err)
	}

	return DocumentToFreet(&doc)
}

// ListFreets returns freets in the requested order.
func (m *MongoDB) ListFreets(ctx context.Context, order FreetSort, limit int) ([]*models.Freet, error) {
	return m.findFreets(ctx, bson.M{}, order, limit)
}

// ListFreetsByAuthor returns the author's freets, most recently modified first.
func (m *MongoDB) ListFreetsByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]*models.Freet, error) {
	return m.findFreets(ctx, bson.M{"authorid": authorID.String()}, SortRecent, limit)
}

func (m *MongoDB) findFreets(ctx context.Context, filter bson.M, order FreetSort, limit int) ([]*models.Freet, error) {
	var sortKeys bson.D
	switch order {
	case SortPopular:
		sortKeys = bson.D{{Key: "likes", Value: -1}, {Key: "datemodified", Value: -1}}
	case SortCredible:
		sortKeys = bson.D{{Key: "approves", Value: -1}, {Key: "datemodified", Value: -1}}
	default:
		sortKeys = bson.D{{Key: "datemodified", Value: -1}}
	}

	opts := options.Find().SetSort(sortKeys)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.Freets.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query freets", err)
	}
	defer cursor.Close(ctx)

	freets := make([]*models.Freet, 0)
	for cursor.Next(ctx) {
		var doc FreetDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("Error decoding freet document: %v", err)
			continue
		}

		freet, err := DocumentToFreet(&doc)
		if err != nil {
			log.Printf("Error converting document to model: %v", err)
			continue
		}
		freets = append(freets, freet)
	}

	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return freets, nil
}

// SaveFreet writes the whole aggregate, guarded by the version it was read at.
func (m *MongoDB) SaveFreet(ctx context.Context, freet *models.Freet) error {
	doc := FreetToDocument(freet)
	doc.Version = freet.Version + 1

	filter := bson.M{"_id": doc.ID, "version": freet.Version}
	result, err := m.Freets.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save freet", err)
	}

	if result.MatchedCount == 0 {
		count, err := m.Freets.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to check freet", err)
		}
		if count == 0 {
			return utils.NewPostNotFoundError(doc.ID)
		}
		return utils.NewAppError(utils.ErrConflict, "freet was modified concurrently", nil)
	}

	freet.Version = doc.Version
	return nil
}

// UpdateFreetLikes modifies the like count. The version is bumped as well so
// an in-flight aggregate write cannot overwrite the new count.
func (m *MongoDB) UpdateFreetLikes(ctx context.Context, id uuid.UUID, delta int) (*models.Freet, error) {
	filter := bson.M{"_id": id.String()}
	update := bson.M{
		"$inc": bson.M{
			"likes":   delta,
			"version": 1,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc FreetDocument
	err := m.Freets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to update likes", err)
	}
	return DocumentToFreet(&doc)
}

// DeleteFreet removes the freet document only; dependent records are
// removed by the coordinator.
func (m *MongoDB) DeleteFreet(ctx context.Context, id uuid.UUID) error {
	result, err := m.Freets.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to delete freet", err)
	}
	if result.DeletedCount == 0 {
		return utils.NewPostNotFoundError(id.String())
	}
	return nil
}
