package resume

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func TestResolve_LocalPathPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))

	r := NewResolver(Options{DataDir: dir}, testLogger())
	got, err := r.Resolve(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolve_MissingLocalPath(t *testing.T) {
	r := NewResolver(Options{DataDir: t.TempDir()}, testLogger())
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolve_EmptyReference(t *testing.T) {
	r := NewResolver(Options{DataDir: t.TempDir()}, testLogger())
	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestResolve_S3Download(t *testing.T) {
	origGet := getObject
	defer func() { getObject = origGet }()

	var gotBucket, gotKey string
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		gotBucket = aws.ToString(in.Bucket)
		gotKey = aws.ToString(in.Key)
		return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("pdf-bytes")))}, nil
	}

	dir := t.TempDir()
	r := NewResolver(Options{
		DataDir:      dir,
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
		AccessKey:    "ak",
		SecretKey:    "sk",
	}, testLogger())

	got, err := r.Resolve(context.Background(), "s3://resumes/2026/resume.pdf")

	require.NoError(t, err)
	assert.Equal(t, "resumes", gotBucket)
	assert.Equal(t, "2026/resume.pdf", gotKey)
	assert.Equal(t, filepath.Join(dir, "resume.pdf"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}

func TestResolve_MalformedS3URI(t *testing.T) {
	r := NewResolver(Options{DataDir: t.TempDir()}, testLogger())
	_, err := r.Resolve(context.Background(), "s3://bucket-only")
	require.Error(t, err)
}
