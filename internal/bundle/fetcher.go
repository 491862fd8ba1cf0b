package bundle

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/xerrors"
)

// SSMClient is the slice of the SSM API the fetcher uses.
type SSMClient interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, opts ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// S3Client is the slice of the S3 API the fetcher uses.
type S3Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// FetcherOptions configures a bundle Fetcher.
type FetcherOptions struct {
	Logger log.Logger

	// SSM parameter holding the current bundle SHA256 hash.
	SSMParam string

	// S3 location for bundles: s3://{bucket}/{prefix}/{hash}.tar.gz
	S3Bucket string
	S3Prefix string

	// Local directory bundles are extracted under, one subdirectory per hash.
	CacheDir string

	// AWS config (uses default if nil). Ignored when clients are injected.
	AWSConfig *aws.Config

	// Client overrides for tests.
	SSM SSMClient
	S3  S3Client
}

// Fetcher downloads content bundles published to S3 and discovered through
// an SSM parameter holding the current bundle hash.
type Fetcher struct {
	opts      FetcherOptions
	ssmClient SSMClient
	s3Client  S3Client
	logger    log.Logger
}

func NewFetcher(ctx context.Context, opts FetcherOptions) (*Fetcher, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.CacheDir == "" {
		return nil, xerrors.New("CacheDir is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	ssmClient, s3Client := opts.SSM, opts.S3
	if ssmClient == nil || s3Client == nil {
		var awsCfg aws.Config
		var err error
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			awsCfg, err = config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, xerrors.Wrap(err, "load AWS config")
			}
		}
		if ssmClient == nil {
			ssmClient = ssm.NewFromConfig(awsCfg)
		}
		if s3Client == nil {
			s3Client = s3.NewFromConfig(awsCfg)
		}
	}

	return &Fetcher{
		opts:      opts,
		ssmClient: ssmClient,
		s3Client:  s3Client,
		logger:    opts.Logger,
	}, nil
}

// CurrentHash reads the current bundle hash from SSM.
func (f *Fetcher) CurrentHash(ctx context.Context) (string, error) {
	out, err := f.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(f.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", f.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", f.opts.SSMParam)
	}

	hash := strings.TrimSpace(*out.Parameter.Value)
	if hash == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", f.opts.SSMParam)
	}
	return hash, nil
}

// s3Key returns the S3 object key for a given hash.
func (f *Fetcher) s3Key(hash string) string {
	if f.opts.S3Prefix != "" {
		return fmt.Sprintf("%s/%s.tar.gz", f.opts.S3Prefix, hash)
	}
	return fmt.Sprintf("%s.tar.gz", hash)
}

// Fetch downloads, verifies, and extracts the bundle for hash. It returns
// the directory the content was extracted to. A hash already present in the
// cache directory is reused without a download.
func (f *Fetcher) Fetch(ctx context.Context, hash string) (string, error) {
	extractDir := filepath.Join(f.opts.CacheDir, hash)
	if fi, err := os.Stat(extractDir); err == nil && fi.IsDir() {
		f.logger.Info(ctx, "content bundle cache hit", "hash", truncHash(hash))
		return extractDir, nil
	}

	tmpPath, err := f.download(ctx, hash)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", xerrors.Wrapf(err, "create extract dir %s", extractDir)
	}

	f.logger.Info(ctx, "extracting content bundle",
		"hash", truncHash(hash),
		"dest", extractDir,
	)
	if err := extractTarGz(tmpPath, extractDir); err != nil {
		os.RemoveAll(extractDir)
		return "", xerrors.Wrap(err, "extract bundle")
	}

	return extractDir, nil
}

// download fetches the bundle object and verifies its SHA256 against hash.
func (f *Fetcher) download(ctx context.Context, hash string) (string, error) {
	key := f.s3Key(hash)

	f.logger.Info(ctx, "downloading content bundle",
		"bucket", f.opts.S3Bucket,
		"key", key,
		"expected_hash", truncHash(hash),
	)

	out, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get S3 object s3://%s/%s", f.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	tmpFile, err := os.CreateTemp("", "content-bundle-*.tar.gz")
	if err != nil {
		return "", xerrors.Wrap(err, "create temp file")
	}
	tmpPath := tmpFile.Name()

	written, actualHash, err := copyWithHash(tmpFile, io.LimitReader(out.Body, maxBundleSize+1))
	tmpFile.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", xerrors.Wrap(err, "download bundle")
	}
	if written > maxBundleSize {
		os.Remove(tmpPath)
		return "", xerrors.Newf("bundle exceeds max size (%d bytes, limit %d)", written, maxBundleSize)
	}

	if !hashEqual(actualHash, hash) {
		os.Remove(tmpPath)
		return "", xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actualHash)
	}

	f.logger.Info(ctx, "downloaded content bundle",
		"bytes", written,
		"hash", truncHash(actualHash),
	)
	return tmpPath, nil
}

// copyWithHash copies src to dst while computing SHA256.
func copyWithHash(dst io.Writer, src io.Reader) (written int64, hash string, err error) {
	h := sha256.New()
	w := io.MultiWriter(dst, h)

	written, err = io.Copy(w, src)
	if err != nil {
		return written, "", err
	}
	return written, hex.EncodeToString(h.Sum(nil)), nil
}

// hashEqual compares two hex digests in constant time.
func hashEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// truncHash returns the first 12 characters of a hash for logging.
func truncHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
