package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/suwandre/arbwatch/internal/models"
)

// S3Config points the recorder at an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string // empty for AWS
	Prefix         string
	AccessKey      string // empty to use the default credential chain
	SecretKey      string
	ForcePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Recorder writes one JSON object per opportunity under
// <prefix>/<yyyy>/<mm>/<dd>/<id>.json. Writes are conditional on the key not
// existing yet.
type S3Recorder struct {
	client objectPutter
	bucket string
	prefix string
}

func NewS3Recorder(ctx context.Context, cfg S3Config) (*S3Recorder, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 history: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 history: region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 history: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(normaliseEndpoint(cfg.Endpoint))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return newS3Recorder(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Recorder(client objectPutter, bucket, prefix string) *S3Recorder {
	return &S3Recorder{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (r *S3Recorder) Record(ctx context.Context, opp models.Opportunity) error {
	body, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("s3 history: encode opportunity %s: %w", opp.ID, err)
	}

	key := r.objectKey(opp)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("s3 history: put object %s: %w", key, err)
	}
	return nil
}

func (r *S3Recorder) Close() error {
	return nil
}

func (r *S3Recorder) objectKey(opp models.Opportunity) string {
	ts := opp.ObservedAt.UTC()
	return path.Join(r.prefix, ts.Format("2006"), ts.Format("01"), ts.Format("02"), opp.ID+".json")
}

// normaliseEndpoint adds an https:// scheme when the endpoint has none.
func normaliseEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
