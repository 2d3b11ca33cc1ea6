package store

import (
	"context"
	"testing"

	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/entity"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore("user-1")
	ctx := context.Background()

	session := &entity.Session{
		Transcript: []entity.TranscriptEntry{
			{Id: 0, Role: entity.RoleAssistant, Text: "hello"},
			{Id: 1, Role: entity.RoleUser, Text: "what is in my docs?"},
			{
				Id:   2,
				Role: entity.RoleAssistant,
				Text: "Vaccines, mostly.",
				Citations: []entity.Citation{
					{SourceId: "doc-a", Excerpt: "measles vaccine", Name: "vaccines.pdf"},
				},
				Sentiment: entity.SentimentPositive,
			},
		},
	}

	assert.NoError(t, s.Save(ctx, session))

	loaded, ok := s.Load(ctx)
	assert.True(t, ok)
	assert.Equal(t, session.Transcript, loaded.Transcript)
	assert.Empty(t, loaded.PendingRequestId)
}

func TestMemoryStoreMissOnEmpty(t *testing.T) {
	s := NewMemoryStore("user-2")

	loaded, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, loaded)
}

func TestMemoryStoreMissOnMalformedRecord(t *testing.T) {
	s := NewMemoryStore("user-3")
	s.cache.Set(constant.SessionStoreKeyPrefix+"user-3", []byte("{not json"), cache.NoExpiration)

	loaded, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, loaded)
}

func TestMemoryStoreOverwritesWholesale(t *testing.T) {
	s := NewMemoryStore("user-4")
	ctx := context.Background()

	first := &entity.Session{Transcript: []entity.TranscriptEntry{
		{Id: 0, Role: entity.RoleAssistant, Text: "hello"},
		{Id: 1, Role: entity.RoleUser, Text: "hi there"},
	}}
	assert.NoError(t, s.Save(ctx, first))

	second := &entity.Session{Transcript: []entity.TranscriptEntry{
		{Id: 0, Role: entity.RoleAssistant, Text: "hello"},
	}}
	assert.NoError(t, s.Save(ctx, second))

	loaded, ok := s.Load(ctx)
	assert.True(t, ok)
	assert.Len(t, loaded.Transcript, 1)
}
