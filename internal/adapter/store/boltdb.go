package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"github.com/desiderantes/stew/internal/domain"
)

var (
	bucketDocs    = []byte("docs")
	bucketRecords = []byte("records")
	bucketStats   = []byte("stats")
	keyStats      = []byte("corpus_stats")
)


// BoltStore caches per-file extraction results keyed by file path.
// Record entries are stored zstd-compressed.
type BoltStore struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewBoltStore opens or creates the cache database at path and ensures its
// buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketRecords, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	// Nil writer and reader: only EncodeAll/DecodeAll are used.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &BoltStore{db: db, enc: enc, dec: dec}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// DocID derives the cache key of a file path.
func DocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

type docMeta struct {
	Path        string `json:"path"`
	ModTime     int64  `json:"mod_time"`
	ContentHash string `json:"content_hash"`
	Lang        string `json:"lang"`
}

type recordsEntry struct {
	Records    []domain.MessageRecord `json:"records"`
	Diagnostic *domain.Diagnostic     `json:"diagnostic,omitempty"`
}

func (m docMeta) document(id string) domain.Document {
	return domain.Document{
		ID:          id,
		Path:        m.Path,
		ModTime:     time.Unix(m.ModTime, 0),
		ContentHash: m.ContentHash,
		Lang:        m.Lang,
	}
}

// Save stores a document and its extraction result in one transaction.
// Results carrying a read error are not cached.
func (s *BoltStore) Save(doc domain.Document, result domain.FileResult) error {
	if result.Err != "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := json.Marshal(docMeta{
			Path:        doc.Path,
			ModTime:     doc.ModTime.Unix(),
			ContentHash: doc.ContentHash,
			Lang:        doc.Lang,
		})
		if err != nil {
			return err
		}
		raw, err := json.Marshal(recordsEntry{Records: result.Records, Diagnostic: result.Diagnostic})
		if err != nil {
			return err
		}
		entry := s.enc.EncodeAll(raw, nil)
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), meta); err != nil {
			return err
		}
		return tx.Bucket(bucketRecords).Put([]byte(doc.ID), entry)
	})
}

// Lookup returns the cached result for path when it was extracted from
// content with the same hash.
func (s *BoltStore) Lookup(path, contentHash string) (domain.FileResult, bool, error) {
	var result domain.FileResult
	var hit bool
	id := []byte(DocID(path))
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get(id)
		if data == nil {
			return nil
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		if meta.ContentHash != contentHash || meta.Path != path {
			return nil
		}
		compressed := tx.Bucket(bucketRecords).Get(id)
		if compressed == nil {
			return nil
		}
		raw, err := s.dec.DecodeAll(compressed, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress records of %s: %w", path, err)
		}
		var entry recordsEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		result = domain.FileResult{
			Path:       path,
			Records:    entry.Records,
			Diagnostic: entry.Diagnostic,
			Cached:     true,
		}
		hit = true
		return nil
	})
	return result, hit, err
}

// DeleteDoc removes a document and its records.
func (s *BoltStore) DeleteDoc(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDocs).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketRecords).Delete([]byte(id))
	})
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, meta.document(string(k)))
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}
