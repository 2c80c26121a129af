// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/swcache/internal/snapshot"
	"github.com/staranto/swcache/internal/storage"
	"github.com/staranto/swcache/internal/storage/storagetest"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[awsv2.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3v2.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(bytes.Clone(b)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[awsv2.ToString(in.Key)] = b
	return &s3v2.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3v2.HeadObjectInput, _ ...func(*s3v2.Options)) (*s3v2.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[awsv2.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3v2.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3v2.DeleteObjectInput, _ ...func(*s3v2.Options)) (*s3v2.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, awsv2.ToString(in.Key))
	return &s3v2.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3v2.ListObjectsV2Input, _ ...func(*s3v2.Options)) (*s3v2.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, awsv2.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3v2.ListObjectsV2Output{IsTruncated: awsv2.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: awsv2.String(k)})
	}
	return out, nil
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		st, err := New(newFakeS3(), "bucket", "swcache")
		require.NoError(t, err)
		return st
	})
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(newFakeS3(), "", "")
	assert.Error(t, err)
}

func TestObjectLayout(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	st, err := New(api, "bucket", "site/a")
	require.NoError(t, err)

	ns, err := st.Open(ctx, "precache-v1")
	require.NoError(t, err)
	require.NoError(t, ns.Put(ctx, "http://x/a", snapshot.New("http://x/a", 200, nil, []byte("a"))))

	var keys []string
	for k := range api.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	require.Len(t, keys, 2)
	assert.True(t, strings.HasPrefix(keys[0], "site/a/entries/"))
	assert.True(t, strings.HasPrefix(keys[1], "site/a/namespaces/"))
}

func TestEntryOrderSurvivesOverwrite(t *testing.T) {
	ctx := context.Background()
	st, err := New(newFakeS3(), "bucket", "")
	require.NoError(t, err)

	ns, err := st.Open(ctx, "fontcache-v1")
	require.NoError(t, err)
	for _, k := range []string{"http://x/b", "http://x/a", "http://x/c"} {
		require.NoError(t, ns.Put(ctx, k, snapshot.New(k, 200, nil, nil)))
	}
	require.NoError(t, ns.Put(ctx, "http://x/b", snapshot.New("http://x/b", 200, nil, []byte("again"))))

	keys, err := ns.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x/b", "http://x/a", "http://x/c"}, keys)
}
