package backup

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"
)

// Store writes snapshots of theme assets before the installer overwrites
// or deletes them.  Object keys look like
//
//	{prefix}/{shop}/{themeID}/{assetKey}/{20060102T150405Z}-{reason}
type Store struct {
	objects ObjectStore
	prefix  string
	now     func() time.Time
}

func NewStore(objects ObjectStore, prefix string) *Store {
	return &Store{objects: objects, prefix: prefix, now: time.Now}
}

// Save stores body and returns the object key it was written under.
func (s *Store) Save(ctx context.Context, shop string, themeID int64, assetKey, body, reason string) (string, error) {
	stamp := s.now().UTC().Format("20060102T150405Z")
	key := path.Join(s.prefix, shop, strconv.FormatInt(themeID, 10), assetKey, stamp+"-"+reason)
	if err := s.objects.PutObject(ctx, key, []byte(body)); err != nil {
		return "", fmt.Errorf("backup %s: %w", key, err)
	}
	return key, nil
}

// Load returns a previously saved snapshot.
func (s *Store) Load(ctx context.Context, key string) (string, error) {
	b, err := s.objects.GetObject(ctx, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
