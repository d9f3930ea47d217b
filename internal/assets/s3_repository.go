package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Repository.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Repository serves clips from an S3-compatible bucket under a key prefix.
type S3Repository struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Repository creates a bucket-backed repository.
func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	return &S3Repository{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (r *S3Repository) List(ctx context.Context, dir string) ([]string, error) {
	keyPrefix := r.key(dir) + "/"
	var refs []string
	var token *string
	for {
		out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(r.bucket),
			Prefix:            aws.String(keyPrefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("assets: list %s: %w", keyPrefix, err)
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix)
			if name == "" {
				continue
			}
			refs = append(refs, path.Join(dir, name))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	// Buckets have no directories; an empty prefix is reported as missing.
	if len(refs) == 0 {
		return nil, fmt.Errorf("assets: list %s: %w", keyPrefix, fs.ErrNotExist)
	}
	sort.Strings(refs)
	return refs, nil
}

func (r *S3Repository) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(ref)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("assets: head %s: %w", ref, err)
	}
	return true, nil
}

func (r *S3Repository) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(ref)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("assets: get %s: %w", ref, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("assets: get %s: %w", ref, err)
	}
	return out.Body, nil
}

func (r *S3Repository) key(ref string) string {
	ref = strings.Trim(ref, "/")
	if r.prefix == "" {
		return ref
	}
	return r.prefix + "/" + ref
}
