//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_archive.go -package=mocks
// Package archive is the local transcript store behind the viewer CLI:
// messages fetched from the backend are kept in BadgerDB for offline
// reading and indexed in Bluge for full-text search. The sync engine itself
// never touches it; the live conversation stays memory-only.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"connect-sync/domain"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
)

type IRepository interface {
	Store(msg Entry) error
	List(thread domain.ThreadID, limit int) ([]Entry, error)
	Search(ctx context.Context, terms, lang string, limit int) ([]Entry, error)
}

// Entry is one archived message. Lang is the detected iso639-3 code of the
// content, stored as a search facet: the learning app's threads routinely
// mix languages.
type Entry struct {
	ID         string          `json:"id"`
	Thread     domain.ThreadID `json:"thread"`
	SenderID   string          `json:"sender_id"`
	SenderName string          `json:"sender_name"`
	Content    string          `json:"content"`
	Lang       string          `json:"lang"`
	At         time.Time       `json:"at"`
}

type Repository struct {
	db     *badger.DB
	writer *bluge.Writer
	log    *slog.Logger
}

func NewRepository(db *badger.DB, writer *bluge.Writer, log *slog.Logger) *Repository {
	return &Repository{db: db, writer: writer, log: log}
}

// Store persists one message and indexes it for search. The key is
// "msg:{thread}:{timestamp_padded}:{id}" so that:
//  1. A prefix scan returns messages in chronological order (19-digit zero
//     padding keeps the lexicographical order).
//  2. Two messages on the same nanosecond cannot collide.
func (r *Repository) Store(msg Entry) error {
	if msg.Lang == "" {
		info := whatlanggo.Detect(msg.Content)
		msg.Lang = whatlanggo.LangToString(info.Lang)
	}

	key := fmt.Sprintf("msg:%d:%019d:%s", msg.Thread, msg.At.UnixNano(), msg.ID)
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return err
	}

	doc := bluge.NewDocument(msg.ID)
	doc.AddField(bluge.NewTextField("content", msg.Content).StoreValue())
	doc.AddField(bluge.NewKeywordField("lang", msg.Lang).StoreValue())
	doc.AddField(bluge.NewKeywordField("thread", strconv.Itoa(int(msg.Thread))).StoreValue())
	doc.AddField(bluge.NewKeywordField("sender", msg.SenderName).StoreValue())
	doc.AddField(bluge.NewDateTimeField("at", msg.At))
	return r.writer.Update(doc.ID(), doc)
}

// List returns up to limit archived messages of a thread in chronological
// order. Thanks to the padded timestamp in the key, no sorting is needed.
func (r *Repository) List(thread domain.ThreadID, limit int) ([]Entry, error) {
	var entries []Entry
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", thread))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				r.log.Debug("List limit reached", "limit", limit)
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var entry Entry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

// Search runs a full-text query over the archived content, optionally
// narrowed to one language facet, and resolves the hits back from Badger.
func (r *Repository) Search(ctx context.Context, terms, lang string, limit int) ([]Entry, error) {
	reader, err := r.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	var query bluge.Query = bluge.NewMatchQuery(terms).SetField("content")
	if lang != "" {
		boolean := bluge.NewBooleanQuery()
		boolean.AddMust(bluge.NewMatchQuery(terms).SetField("content"))
		boolean.AddMust(bluge.NewTermQuery(lang).SetField("lang"))
		query = boolean
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var ids []string
	match, err := iterator.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return r.resolve(ids)
}

// resolve looks the hit ids up in Badger by scanning the message keyspace;
// the archive is small enough (one user's transcript) that a scan beats
// maintaining a second index.
func (r *Repository) resolve(ids []string) ([]Entry, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var entries []Entry
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var entry Entry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				if wanted[entry.ID] {
					entries = append(entries, entry)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}
