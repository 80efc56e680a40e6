// Package resume resolves the configured resume reference to a local file
// the browser can upload. Local paths pass through after an existence check;
// s3://bucket/key URIs are downloaded into the data directory once per run.
package resume

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/filex"
	"github.com/avolkovs/applybot/internal/logging"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
)

// Options carries the object-storage settings for s3:// references. The key
// pair is optional; when empty the default AWS credential chain applies.
type Options struct {
	DataDir      string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Resolver turns a resume reference into a local path.
type Resolver struct {
	opts Options
	log  logging.Logger
}

func NewResolver(opts Options, log logging.Logger) *Resolver {
	return &Resolver{opts: opts, log: log}
}

// Resolve returns a local path for ref. An s3:// URI is downloaded to the
// data directory; any other value is treated as a local path and must exist.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if strings.HasPrefix(ref, "s3://") {
		return r.download(ctx, ref)
	}
	if _, err := os.Stat(ref); err != nil {
		return "", fmt.Errorf("resume file %s: %w", ref, common.ErrNotFound)
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", err
	}
	return abs, nil
}

func (r *Resolver) download(ctx context.Context, ref string) (string, error) {
	bucket, key, err := splitURI(ref)
	if err != nil {
		return "", err
	}

	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(r.opts.Region)}
	if r.opts.AccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(r.opts.AccessKey, r.opts.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, optFns...)
	if err != nil {
		return "", fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if r.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(r.opts.BaseEndpoint)
		}
	})

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}

	dir, err := filex.EnsureDir(r.opts.DataDir)
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, filepath.Base(key))
	if err := filex.WriteFileAtomic(local, data, 0o600); err != nil {
		return "", err
	}
	r.log.Info(ctx, "resume downloaded", "bucket", bucket, "key", key, "path", local)
	return local, nil
}

// splitURI parses s3://bucket/key/with/slashes.
func splitURI(ref string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(ref, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri %q", ref)
	}
	return bucket, key, nil
}
