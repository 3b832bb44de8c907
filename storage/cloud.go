package storage

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/tlambert03/ndv/ndv"
)

// BucketStore reads keys from an object-store bucket through the portable
// blob API.  For S3 buckets the usual AWS credential chain and AWS_REGION
// apply.
type BucketStore struct {
	ref    string
	bucket *blob.Bucket
}

// OpenBucket opens a bucket reference of the form
//
//	s3://<bucket>/<prefix>
//	gs://<bucket>/<prefix>
//	file:///<dir>
func OpenBucket(ctx context.Context, ref string) (*BucketStore, error) {
	url := ref
	var prefix string
	for _, scheme := range []string{"s3://", "gs://"} {
		if rest, ok := strings.CutPrefix(ref, scheme); ok {
			parts := strings.SplitN(rest, "/", 2)
			url = scheme + parts[0]
			if len(parts) == 2 {
				prefix = parts[1]
			}
			break
		}
	}

	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		ndv.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
		return nil, err
	}
	if prefix != "" {
		bucket = blob.PrefixedBucket(bucket, strings.TrimRight(prefix, "/")+"/")
	}
	return &BucketStore{ref: ref, bucket: bucket}, nil
}

func (s *BucketStore) Type() string { return "bucket" }

func (s *BucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	d, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return d, nil
}

// Close releases the underlying bucket connection.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

// OpenStore resolves a dataset reference to a Store: bucket URLs open object
// stores, http(s) URLs open remote stores, and anything else is a local
// directory.
func OpenStore(ctx context.Context, ref string) (Store, error) {
	switch {
	case strings.HasPrefix(ref, "s3://"), strings.HasPrefix(ref, "gs://"),
		strings.HasPrefix(ref, "file://"):
		return OpenBucket(ctx, ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return NewHTTPStore(ref), nil
	default:
		return NewFileStore(ref)
	}
}
