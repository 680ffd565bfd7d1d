package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beifahrer/internal/model"
)

func TestDocumentFindByName(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	require.NoError(t, repo.Create(&model.KnowledgeDocument{Name: "handbuch.pdf"}))

	got, err := repo.FindByName("handbuch.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "handbuch.pdf", got.Name)

	missing, err := repo.FindByName("unbekannt.pdf")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentDeleteAndListAll(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))

	first := &model.KnowledgeDocument{Name: "kapitel-1.html"}
	second := &model.KnowledgeDocument{Name: "kapitel-2.html"}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	require.NoError(t, repo.Delete(first.ID))

	docs, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kapitel-2.html", docs[0].Name)
}

func TestChunkListAllOrdersByDocumentAndPosition(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	chunks := NewChunkRepository(db)

	docA := &model.KnowledgeDocument{Name: "a"}
	docB := &model.KnowledgeDocument{Name: "b"}
	require.NoError(t, docs.Create(docA))
	require.NoError(t, docs.Create(docB))

	require.NoError(t, chunks.CreateBatch([]model.Chunk{
		{DocumentID: docB.ID, Position: 0, Content: "b0"},
		{DocumentID: docA.ID, Position: 1, Content: "a1"},
		{DocumentID: docA.ID, Position: 0, Content: "a0"},
	}))

	all, err := chunks.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a0", all[0].Content)
	assert.Equal(t, "a1", all[1].Content)
	assert.Equal(t, "b0", all[2].Content)
}

func TestChunkDeleteByDocumentID(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	chunks := NewChunkRepository(db)

	doc := &model.KnowledgeDocument{Name: "alt"}
	keep := &model.KnowledgeDocument{Name: "bleibt"}
	require.NoError(t, docs.Create(doc))
	require.NoError(t, docs.Create(keep))
	require.NoError(t, chunks.CreateBatch([]model.Chunk{
		{DocumentID: doc.ID, Position: 0, Content: "weg"},
		{DocumentID: keep.ID, Position: 0, Content: "bleibt"},
	}))

	require.NoError(t, chunks.DeleteByDocumentID(doc.ID))

	all, err := chunks.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].DocumentID)
}
