package database

import (
	"testing"

	"fritter/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreetDocumentRoundTripKeepsDottedURLs(t *testing.T) {
	freet := models.NewFreet(uuid.New(), "with evidence")
	user := uuid.New()
	url := "https://news.example.com/story.html"

	freet.AddReactor(models.Approve, user)
	freet.AppendEvidence(models.Approve, user, url)
	freet.SetTally(models.Approve, url, 4)
	freet.Version = 9

	doc := FreetToDocument(freet)
	require.Len(t, doc.ApproveLinks, 1)
	assert.Equal(t, url, doc.ApproveLinks[0].URL)
	assert.Equal(t, 4, doc.ApproveLinks[0].Count)
	assert.Empty(t, doc.DisapproveLinks)

	back, err := DocumentToFreet(doc)
	require.NoError(t, err)
	assert.Equal(t, freet.ID, back.ID)
	assert.Equal(t, 1, back.Approves)
	assert.Equal(t, map[string]int{url: 4}, back.ApproveLinks)
	assert.Equal(t, []string{url}, back.Approvers[user])
	assert.True(t, back.HasEvidence(models.Approve, user, url))
	assert.Equal(t, int64(9), back.Version)
}

func TestFreetDocumentEmptyEvidenceListSurvives(t *testing.T) {
	freet := models.NewFreet(uuid.New(), "bare approval")
	user := uuid.New()
	freet.AddReactor(models.Disapprove, user)

	doc := FreetToDocument(freet)
	doc.Disapprovers[0].Links = nil

	back, err := DocumentToFreet(doc)
	require.NoError(t, err)
	assert.True(t, back.HasReactor(models.Disapprove, user))
	assert.NotNil(t, back.Disapprovers[user])
}

func TestDocumentToFreetRejectsBadIDs(t *testing.T) {
	doc := FreetToDocument(models.NewFreet(uuid.New(), "x"))
	doc.AuthorID = "not-a-uuid"

	_, err := DocumentToFreet(doc)
	assert.Error(t, err)
}
