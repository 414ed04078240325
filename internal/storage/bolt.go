package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/NewsAlert/internal/logger"
	bolt "go.etcd.io/bbolt"
)

var linksBucket = []byte("links")

// BoltStore 单文件嵌入式存储，value 记录首次见到的时间
type BoltStore struct {
	db  *bolt.DB
	log logger.Logger
	now func() time.Time
}

func NewBoltStore(path string, log logger.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(linksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltStore{db: db, log: logger.OrNop(log), now: time.Now}, nil
}

func (s *BoltStore) Load(_ context.Context) LinkSet {
	links := NewLinkSet()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(linksBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			links.Add(string(k))
			return nil
		})
	})
	if err != nil {
		s.log.Warn("load links from bolt failed, starting empty", logger.Err(err))
		return NewLinkSet()
	}
	return links
}

func (s *BoltStore) Save(_ context.Context, links LinkSet) error {
	stamp := []byte(s.now().UTC().Format(time.RFC3339))
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(linksBucket)
		if err != nil {
			return err
		}
		for _, l := range links.Sorted() {
			key := []byte(l)
			if b.Get(key) != nil {
				continue
			}
			if err := b.Put(key, stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save links to bolt: %w", err)
	}
	return nil
}

// FirstSeen 返回链接首次写入的时间
func (s *BoltStore) FirstSeen(link string) (time.Time, bool) {
	var v []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(linksBucket); b != nil {
			if raw := b.Get([]byte(link)); raw != nil {
				v = append([]byte(nil), raw...)
			}
		}
		return nil
	})
	if v == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, string(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
