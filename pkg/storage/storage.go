// Package storage persists uploaded patches so that GET /diffs/{id} can
// re-render a previously-submitted diff without the client resending the
// patch and full file contents. Adapted directly from the teacher's
// root-level storage.go: the Storage/ListStorage interfaces and the
// dbStorage/minioStorage/cachedStorage trio survive unchanged in shape, but
// now hold JSON-encoded StoredDiff blobs instead of tar.gz file pairs.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"go.etcd.io/bbolt"
	"go.uber.org/multierr"
)

// ErrNotFound is returned by Get when id has no stored object.
var ErrNotFound = errors.New("storage: not found")

// StoredDiff is the JSON blob persisted for one POST /diffs submission. File
// sizes are expected to stay well under 1MB, the same assumption the
// teacher's Storage documents.
type StoredDiff struct {
	Patch            string    `json:"patch"`
	Filename         string    `json:"filename"`
	PreviousFilename string    `json:"previousFilename,omitempty"`
	OldContent       string    `json:"oldContent,omitempty"`
	NewContent       string    `json:"newContent,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Storage stores and retrieves content-addressed blobs. It must not delete
// objects on its own.
type Storage interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Del(ctx context.Context, id string) error
}

// ListStorage adds enumeration, used to seed the in-memory cache at startup.
type ListStorage interface {
	Storage
	List(ctx context.Context, cb func(id string, b []byte) error) error
}

// PutDiff JSON-encodes d and stores it under id.
func PutDiff(ctx context.Context, s Storage, id string, d StoredDiff) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	return s.Put(ctx, id, b)
}

// GetDiff retrieves and decodes the StoredDiff at id.
func GetDiff(ctx context.Context, s Storage, id string) (StoredDiff, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return StoredDiff{}, err
	}
	var d StoredDiff
	if err := json.Unmarshal(b, &d); err != nil {
		return StoredDiff{}, fmt.Errorf("storage: decode: %w", err)
	}
	return d, nil
}

// PutDiffIfAbsent stores d under id unless id already has something stored,
// reporting whether it actually wrote. This is the demo service's whole
// resubmission-dedup story: id is already content-addressed (see
// cmd/prdiffd's contentID), so "has this exact patch already been stored"
// and "does storage already have this id" are the same question, answerable
// with the Storage this package already exposes rather than a second
// bookkeeping bucket next to it.
func PutDiffIfAbsent(ctx context.Context, s Storage, id string, d StoredDiff) (bool, error) {
	if _, err := s.Get(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := PutDiff(ctx, s, id, d); err != nil {
		return false, err
	}
	return true, nil
}

// minioStorage stores objects in an S3-compatible bucket, used when the
// service is configured with S3 credentials instead of a local bbolt file.
type minioStorage struct {
	cl         *minio.Client
	bucketName string
}

// NewMinioStorage wraps cl/bucketName as a Storage.
func NewMinioStorage(cl *minio.Client, bucketName string) Storage {
	return &minioStorage{cl: cl, bucketName: bucketName}
}

var _ Storage = (*minioStorage)(nil)

func (m *minioStorage) Get(ctx context.Context, id string) ([]byte, error) {
	obj, err := m.cl.GetObject(ctx, m.bucketName, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (m *minioStorage) Put(ctx context.Context, id string, data []byte) error {
	_, err := m.cl.PutObject(ctx, m.bucketName, id,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (m *minioStorage) Del(ctx context.Context, id string) error {
	return m.cl.RemoveObject(ctx, m.bucketName, id, minio.RemoveObjectOptions{})
}

// dbStorage stores objects in a bbolt bucket, the default persistence
// backend for the demo service.
type dbStorage struct {
	db         *bbolt.DB
	bucketName []byte
}

var _ ListStorage = (*dbStorage)(nil)

// NewDBStorage wraps db as a ListStorage, creating bucketName if absent.
func NewDBStorage(db *bbolt.DB, bucketName string) (Storage, error) {
	name := []byte(bucketName)
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating bucket: %w", err)
	}
	return &dbStorage{db: db, bucketName: name}, nil
}

func (m *dbStorage) Get(ctx context.Context, id string) ([]byte, error) {
	var val []byte
	err := m.db.View(func(tx *bbolt.Tx) error {
		val = append(val, tx.Bucket(m.bucketName).Get([]byte(id))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(val) == 0 {
		return nil, ErrNotFound
	}
	return val, nil
}

func (m *dbStorage) Put(ctx context.Context, id string, data []byte) error {
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Put([]byte(id), data)
	})
}

func (m *dbStorage) Del(ctx context.Context, id string) error {
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Delete([]byte(id))
	})
}

func (m *dbStorage) List(ctx context.Context, cb func(id string, b []byte) error) error {
	return m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).ForEach(func(k, v []byte) error {
			return cb(string(k), v)
		})
	})
}

// cachedObject tracks one cached blob's size and last access time, used to
// pick eviction candidates without per-access LRU list maintenance.
type cachedObject struct {
	id          string
	size        uint64
	lastAccess  time.Time
	lastAccessM sync.Mutex
}

func (c *cachedObject) access() {
	n := time.Now()
	if c.lastAccessM.TryLock() {
		c.lastAccess = n
		c.lastAccessM.Unlock()
	}
}

// cachedStorage fronts a permanent Storage with a ListStorage cache tier,
// whose entries it tracks in an in-memory index. Once the cached bytes reach
// maxSize it evicts the least recently accessed entries in one batch pass,
// until the total is maxSize/20 below maxSize.
type cachedStorage struct {
	cache     ListStorage
	permanent Storage
	maxSize   uint64

	sync.RWMutex
	objects  map[string]*cachedObject
	cleaning chan struct{}
}

// NewCachedStorage wraps cache in front of permanent, seeding the in-memory
// index from cache's existing contents.
func NewCachedStorage(cache ListStorage, permanent Storage, maxSize uint64) (Storage, error) {
	objects := make(map[string]*cachedObject)
	err := cache.List(context.Background(), func(id string, b []byte) error {
		objects[id] = &cachedObject{id: id, size: uint64(len(b)), lastAccess: time.Now()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c := &cachedStorage{
		cache:     cache,
		permanent: permanent,
		maxSize:   maxSize,
		objects:   objects,
		cleaning:  make(chan struct{}, 1),
	}
	go c.cleaner()
	return c, nil
}

var _ Storage = (*cachedStorage)(nil)

const cleanSleep = time.Second

func (c *cachedStorage) cacheSize() uint64 {
	var sz uint64
	c.RLock()
	for _, obj := range c.objects {
		sz += obj.size
	}
	c.RUnlock()
	return sz
}

func (c *cachedStorage) evict(els []*cachedObject) {
	c.RLock()
	defer c.RUnlock()
	for _, el := range els {
		if _, ok := c.objects[el.id]; ok {
			continue // recreated while we were evicting
		}
		if err := c.cache.Del(context.Background(), el.id); err != nil {
			log.Printf("storage: error deleting during cache eviction: %v", err)
		}
	}
}

func (c *cachedStorage) doClean() {
	c.Lock()
	defer c.Unlock()

	objects := make([]*cachedObject, 0, len(c.objects))
	var sz uint64
	for _, obj := range c.objects {
		objects = append(objects, obj)
		obj.lastAccessM.Lock()
		sz += obj.size
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].lastAccess.Before(objects[j].lastAccess)
	})

	collectTarget := (sz - c.maxSize) + c.maxSize/20
	var collected uint64
	del := objects

	for i, obj := range objects {
		if collected >= collectTarget {
			del = objects[:i]
			obj.lastAccessM.Unlock()
			break
		}
		collected += obj.size
		delete(c.objects, obj.id)
		obj.lastAccessM.Unlock()
	}

	go c.evict(del)
}

func (c *cachedStorage) cleaner() {
	for range c.cleaning {
		if c.cacheSize() >= c.maxSize {
			c.doClean()
		}
		time.Sleep(cleanSleep)
	}
}

func (c *cachedStorage) cacheHas(id string) bool {
	c.RLock()
	_, ok := c.objects[id]
	c.RUnlock()
	return ok
}

func (c *cachedStorage) Get(ctx context.Context, id string) ([]byte, error) {
	if c.cacheHas(id) {
		b, err := c.cache.Get(ctx, id)
		if err == nil {
			c.RLock()
			if obj, ok := c.objects[id]; ok {
				obj.access()
			}
			c.RUnlock()
			return b, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	b, err := c.permanent.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, id, b); err != nil {
		log.Printf("storage: error populating cache: %v", err)
		return b, nil
	}
	c.Lock()
	c.objects[id] = &cachedObject{id: id, size: uint64(len(b)), lastAccess: time.Now()}
	c.Unlock()

	select {
	case c.cleaning <- struct{}{}:
	default:
	}
	return b, nil
}

func (c *cachedStorage) Put(ctx context.Context, id string, data []byte) error {
	if err := c.permanent.Put(ctx, id, data); err != nil {
		return err
	}
	if err := c.cache.Put(ctx, id, data); err != nil {
		log.Printf("storage: error writing through to cache: %v", err)
		return nil
	}
	c.Lock()
	c.objects[id] = &cachedObject{id: id, size: uint64(len(data)), lastAccess: time.Now()}
	c.Unlock()

	select {
	case c.cleaning <- struct{}{}:
	default:
	}
	return nil
}

func (c *cachedStorage) Del(ctx context.Context, id string) error {
	c.Lock()
	delete(c.objects, id)
	c.Unlock()
	// Combine both tiers' errors the same way the teacher combines a
	// primary operation's error with a best-effort cleanup's: neither
	// deletion should mask the other.
	return multierr.Combine(c.permanent.Del(ctx, id), c.cache.Del(ctx, id))
}
