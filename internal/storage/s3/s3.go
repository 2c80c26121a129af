// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package s3 stores namespaces in an S3 (or S3-compatible) bucket.
//
// Layout under the configured prefix:
//
//	namespaces/<xxhash(name)>.json           namespace marker
//	entries/<xxhash(name)>/<xxhash(key)>.json entry record
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/staranto/swcache/internal/cacheutil"
	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
)

// API is the subset of *s3.Client the backend needs.
type API interface {
	GetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3v2.HeadObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3v2.DeleteObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3v2.ListObjectsV2Input, optFns ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error)
}

type marker struct {
	Name    string `json:"name"`
	Created int64  `json:"created"`
}

type record struct {
	Key      string             `json:"key"`
	Created  int64              `json:"created"`
	Snapshot *snapshot.Snapshot `json:"snapshot"`
}

// Storage is a bucket-backed storage.Storage.
type Storage struct {
	api    API
	bucket string
	prefix string

	mu   sync.Mutex
	last int64
}

// New returns a Storage writing below prefix in bucket.
func New(api API, bucket, prefix string) (*Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Storage{api: api, bucket: bucket, prefix: prefix}, nil
}

// seq returns a strictly increasing timestamp used for ordering.
func (s *Storage) seq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}

func (s *Storage) markerKey(name string) string {
	return path.Join(s.prefix, "namespaces", cacheutil.EncodeKey(name)+".json")
}

func (s *Storage) entriesPrefix(name string) string {
	return path.Join(s.prefix, "entries", cacheutil.EncodeKey(name)) + "/"
}

func (s *Storage) Open(ctx context.Context, name string) (storage.Namespace, error) {
	if err := storage.CheckName(name); err != nil {
		return nil, err
	}
	ok, err := s.Has(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		body, err := json.Marshal(marker{Name: name, Created: s.seq()})
		if err != nil {
			return nil, fmt.Errorf("failed to encode namespace marker: %w", err)
		}
		if err := s.put(ctx, s.markerKey(name), body); err != nil {
			return nil, fmt.Errorf("failed to create namespace %s: %w", name, err)
		}
		log.Debugf("created namespace %s in s3://%s/%s", name, s.bucket, s.prefix)
	}
	return &Namespace{name: name, store: s}, nil
}

func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3v2.HeadObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.markerKey(name)),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to head namespace %s: %w", name, err)
	}
	return true, nil
}

func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	ok, err := s.Has(ctx, name)
	if err != nil || !ok {
		return false, err
	}

	if err := s.del(ctx, s.markerKey(name)); err != nil {
		return false, fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}

	objects, err := s.list(ctx, s.entriesPrefix(name))
	if err != nil {
		return true, err
	}
	for _, key := range objects {
		if err := s.del(ctx, key); err != nil {
			log.WithError(err).Warnf("failed to delete s3://%s/%s", s.bucket, key)
		}
	}
	return true, nil
}

func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	objects, err := s.list(ctx, path.Join(s.prefix, "namespaces")+"/")
	if err != nil {
		return nil, err
	}

	markers := make([]marker, 0, len(objects))
	for _, key := range objects {
		body, ok, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var m marker
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("failed to decode namespace marker %s: %w", key, err)
		}
		markers = append(markers, m)
	}

	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Created == markers[j].Created {
			return markers[i].Name < markers[j].Name
		}
		return markers[i].Created < markers[j].Created
	})

	names := make([]string, 0, len(markers))
	for _, m := range markers {
		names = append(names, m.Name)
	}
	return names, nil
}

func (s *Storage) get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.api.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(key),
	})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, true, nil
}

func (s *Storage) put(ctx context.Context, key string, body []byte) error {
	_, err := s.api.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:      awsv2.String(s.bucket),
		Key:         awsv2.String(key),
		Body:        bytes.NewReader(body),
		ContentType: awsv2.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put S3 object: %w", err)
	}
	return nil
}

func (s *Storage) del(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3v2.DeleteObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete S3 object: %w", err)
	}
	return nil
}

func (s *Storage) list(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3v2.NewListObjectsV2Paginator(s.api, &s3v2.ListObjectsV2Input{
		Bucket: awsv2.String(s.bucket),
		Prefix: awsv2.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, awsv2.ToString(obj.Key))
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// Namespace is one prefix of entry objects.
type Namespace struct {
	name  string
	store *Storage
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) objectKey(key string) string {
	return n.store.entriesPrefix(n.name) + cacheutil.EncodeKey(key) + ".json"
}

func (n *Namespace) read(ctx context.Context, objectKey string) (*record, error) {
	body, ok, err := n.store.get(ctx, objectKey)
	if err != nil || !ok {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", objectKey, err)
	}
	return &rec, nil
}

func (n *Namespace) Match(ctx context.Context, key string) (*snapshot.Snapshot, bool, error) {
	rec, err := n.read(ctx, n.objectKey(key))
	if err != nil {
		return nil, false, err
	}
	if rec == nil || rec.Key != key || rec.Snapshot == nil {
		return nil, false, nil
	}
	if rec.Snapshot.Header == nil {
		rec.Snapshot.Header = map[string][]string{}
	}
	return rec.Snapshot, true, nil
}

func (n *Namespace) Put(ctx context.Context, key string, s *snapshot.Snapshot) error {
	if err := storage.CheckPut(key, s); err != nil {
		return err
	}

	created := n.store.seq()
	if prev, err := n.read(ctx, n.objectKey(key)); err == nil && prev != nil && prev.Key == key {
		created = prev.Created
	}

	body, err := json.Marshal(record{Key: key, Created: created, Snapshot: s})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return n.store.put(ctx, n.objectKey(key), body)
}

func (n *Namespace) Delete(ctx context.Context, key string) (bool, error) {
	rec, err := n.read(ctx, n.objectKey(key))
	if err != nil {
		return false, err
	}
	if rec == nil || rec.Key != key {
		return false, nil
	}
	if err := n.store.del(ctx, n.objectKey(key)); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	objects, err := n.store.list(ctx, n.store.entriesPrefix(n.name))
	if err != nil {
		return nil, err
	}

	recs := make([]*record, 0, len(objects))
	for _, obj := range objects {
		rec, err := n.read(ctx, obj)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Created < recs[j].Created })

	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		keys = append(keys, rec.Key)
	}
	return keys, nil
}
