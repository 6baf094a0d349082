// Package s3store keeps each record as one JSON object in an S3 bucket.
// Creates and updates use conditional writes, so concurrent nodes sharing a
// bucket never overwrite each other silently.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

const (
	keyPrefix = "records/"
	keySuffix = ".json"

	// maxUpdateAttempts bounds the read-modify-write loop under contention.
	maxUpdateAttempts = 5
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// API is the part of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options locate the bucket. Path-style addressing is used so MinIO works
// out of the box.
type Options struct {
	Region       string
	User         string
	Password     string
	BaseEndpoint string
	Bucket       string
}

// Store implements store.RemoteStore and store.Scanner.
type Store struct {
	api    API
	bucket string
	logger logging.Logger
}

func New(ctx context.Context, o Options, l logging.Logger) (*Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	})
	return NewWithClient(client, o.Bucket, l), nil
}

func NewWithClient(api API, bucket string, l logging.Logger) *Store {
	return &Store{api: api, bucket: bucket, logger: l.With("module", "s3store")}
}

func objectKey(key string) string { return keyPrefix + url.PathEscape(key) + keySuffix }

func recordKey(object string) (string, bool) {
	if !strings.HasPrefix(object, keyPrefix) || !strings.HasSuffix(object, keySuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(object, keyPrefix), keySuffix))
	return key, err == nil
}

func (s *Store) CreateRecord(ctx context.Context, key string, record store.Record) store.Result {
	if record == nil {
		record = store.Record{}
	}
	err := s.put(ctx, key, record, func(in *s3.PutObjectInput) { in.IfNoneMatch = aws.String("*") })
	switch {
	case err == nil:
		return store.Value(nil)
	case isConditionFailure(err):
		return store.Coded(responsecode.DuplicateID, nil)
	default:
		return s.failure(ctx, "create", key, err)
	}
}

func (s *Store) ReadField(ctx context.Context, key, field string) store.Result {
	rec, _, res := s.load(ctx, key)
	if !res.OK() {
		return res
	}
	return store.FieldOf(rec, field)
}

func (s *Store) ReadRecord(ctx context.Context, key string) store.Result {
	rec, _, res := s.load(ctx, key)
	if !res.OK() {
		return res
	}
	return store.WithRecord(rec)
}

func (s *Store) UpdateField(ctx context.Context, key, field string, u updates.Update) store.Result {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		rec, etag, res := s.load(ctx, key)
		exists := res.OK()
		if !exists && res.Code != responsecode.BadGuid {
			return res
		}

		working, write, code := store.Mutate(rec, field, u)
		if code.IsError() {
			return store.Coded(code, nil)
		}
		if !write {
			return store.Value(nil)
		}

		err := s.put(ctx, key, working, func(in *s3.PutObjectInput) {
			if exists {
				in.IfMatch = aws.String(etag)
			} else {
				in.IfNoneMatch = aws.String("*")
			}
		})
		if err == nil {
			return store.Value(nil)
		}
		if !isConditionFailure(err) {
			return s.failure(ctx, "update", key, err)
		}
		s.logger.Debug(ctx, "conditional write lost, retrying", "key", key, "attempt", attempt)
	}
	return s.failure(ctx, "update", key, common.ErrorVersionConflict)
}

// DeleteRecord checks the object exists first; S3 deletes are idempotent
// and would hide a missing key.
func (s *Store) DeleteRecord(ctx context.Context, key string) store.Result {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(objectKey(key))})
	if err != nil {
		if isNotFound(err) {
			return store.Coded(responsecode.BadGuid, nil)
		}
		return s.failure(ctx, "delete", key, err)
	}

	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(objectKey(key))}); err != nil {
		return s.failure(ctx, "delete", key, err)
	}
	return store.Value(nil)
}

// KeysWithField lists every record object and returns the keys whose
// record carries field. It reads every object and is meant for sweeps.
func (s *Store) KeysWithField(ctx context.Context, field string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, obj := range page.Contents {
			key, ok := recordKey(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			rec, _, res := s.load(ctx, key)
			if res.Code == responsecode.BadGuid {
				continue
			}
			if !res.OK() {
				return nil, fmt.Errorf("read %s: %w", key, res.Err)
			}
			if _, found := updates.GetPath(rec, field); found {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (s *Store) load(ctx context.Context, key string) (store.Record, string, store.Result) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(objectKey(key))})
	if err != nil {
		if isNotFound(err) {
			return nil, "", store.Coded(responsecode.BadGuid, nil)
		}
		return nil, "", s.failure(ctx, "read", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", s.failure(ctx, "read", key, err)
	}
	rec := store.Record{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, "", store.Coded(responsecode.JSONParseError, err)
		}
	}
	return rec, aws.ToString(out.ETag), store.Value(nil)
}

func (s *Store) put(ctx context.Context, key string, rec store.Record, cond func(*s3.PutObjectInput)) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	cond(in)
	_, err = s.api.PutObject(ctx, in)
	return err
}

func (s *Store) failure(ctx context.Context, op, key string, err error) store.Result {
	s.logger.Error(ctx, "s3 store failure", "op", op, "key", key, "err", err)
	return store.Failure(err)
}

func isNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isConditionFailure covers a failed If-Match/If-None-Match (412) and the
// 409 S3 returns while a competing conditional write is in flight.
func isConditionFailure(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
