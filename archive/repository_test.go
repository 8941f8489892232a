package archive

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"connect-sync/domain"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	return NewRepository(db, writer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func entryAt(id string, thread domain.ThreadID, content string, at time.Time) Entry {
	return Entry{
		ID:         id,
		Thread:     thread,
		SenderID:   "alice",
		SenderName: "Alice",
		Content:    content,
		At:         at,
	}
}

func TestRepository_List_ReturnsChronologicalOrder(t *testing.T) {
	// Given three messages stored out of order
	repo := newTestRepository(t)
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Store(entryAt("2", 7, "second", base.Add(time.Minute))))
	require.NoError(t, repo.Store(entryAt("3", 7, "third", base.Add(2*time.Minute))))
	require.NoError(t, repo.Store(entryAt("1", 7, "first", base)))

	// When the thread is listed
	entries, err := repo.List(7, 0)

	// Then the padded keys yield chronological order without sorting
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "first", entries[0].Content)
	require.Equal(t, "second", entries[1].Content)
	require.Equal(t, "third", entries[2].Content)
}

func TestRepository_List_IsScopedToTheThread(t *testing.T) {
	repo := newTestRepository(t)
	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Store(entryAt("1", 7, "mine", at)))
	require.NoError(t, repo.Store(entryAt("2", 8, "someone else's", at)))

	entries, err := repo.List(7, 0)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "mine", entries[0].Content)
}

func TestRepository_List_HonorsTheLimit(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Store(entryAt(
			string(rune('a'+i)), 7, "msg", base.Add(time.Duration(i)*time.Second))))
	}

	entries, err := repo.List(7, 2)

	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRepository_Store_DetectsTheContentLanguage(t *testing.T) {
	repo := newTestRepository(t)
	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Store(entryAt(
		"1", 7, "the quick brown fox jumps over the lazy dog", at)))

	entries, err := repo.List(7, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "eng", entries[0].Lang)
}

func TestRepository_Search_FindsByContent(t *testing.T) {
	// Given a few archived messages
	repo := newTestRepository(t)
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Store(entryAt("1", 7, "my delivery is delayed again", base)))
	require.NoError(t, repo.Store(entryAt("2", 7, "thanks for the refund", base.Add(time.Minute))))

	// When searching for a word that appears in one of them
	entries, err := repo.Search(context.Background(), "delivery", "", 10)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1", entries[0].ID)
}

func TestRepository_Search_NarrowsByLanguageFacet(t *testing.T) {
	// Given the same word archived in two languages
	repo := newTestRepository(t)
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	english := entryAt("1", 7, "good morning to you", base)
	english.Lang = "eng"
	french := entryAt("2", 7, "morning est un mot anglais", base.Add(time.Minute))
	french.Lang = "fra"
	require.NoError(t, repo.Store(english))
	require.NoError(t, repo.Store(french))

	entries, err := repo.Search(context.Background(), "morning", "fra", 10)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "2", entries[0].ID)
}
