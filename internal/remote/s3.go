package remote

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/robinradio/robincore/internal/errors"
	"github.com/robinradio/robincore/internal/monitoring"
)

// Options configures the S3-backed catalog store.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3-compatible stores (path-style addressing)
	AccessKeyID     string
	SecretAccessKey string
	RootPrefix      string // top of the catalog hierarchy, e.g. "Artist"
	PresignExpiry   time.Duration
	RequestsPerSec  int
}

// S3Store implements Store against an S3-compatible bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	root    string
	expiry  time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewS3Store builds the bucket client. Credentials fall back to the
// default AWS chain when not set explicitly.
func NewS3Store(ctx context.Context, opts Options, logger *zap.Logger) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.NewRemoteStoreError(apperrors.StoreCodeGeneric, "loading storage credentials failed", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 20
	}

	expiry := opts.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		root:    strings.Trim(opts.RootPrefix, "/"),
		expiry:  expiry,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  logger.With(zap.String("component", "remote"), zap.String("bucket", opts.Bucket)),
	}, nil
}

// ListChildren lists one level of the hierarchy using a delimited
// ListObjectsV2. Common prefixes become Prefixes, object keys become
// Items; directory marker objects are skipped.
func (s *S3Store) ListChildren(ctx context.Context, path string) (*Listing, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, mapError("list", err)
	}

	prefix := s.keyPrefix(path)
	listing := &Listing{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			mapped := mapError("list", err)
			monitoring.RecordRemoteCall("list_children", mapped)
			return nil, mapped
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			listing.Prefixes = append(listing.Prefixes, strings.TrimSuffix(*cp.Prefix, "/"))
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			// Zero-byte directory markers show up as contents of their
			// own prefix.
			if key == prefix || strings.HasSuffix(key, "/") {
				continue
			}
			listing.Items = append(listing.Items, key)
		}
	}

	monitoring.RecordRemoteCall("list_children", nil)
	s.logger.Debug("listed children",
		zap.String("path", path),
		zap.Int("prefixes", len(listing.Prefixes)),
		zap.Int("items", len(listing.Items)))

	return listing, nil
}

// DownloadURL presigns a GetObject request for a leaf blob.
func (s *S3Store) DownloadURL(ctx context.Context, blobPath string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", mapError("presign", err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobPath),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		mapped := mapError("presign", err)
		monitoring.RecordRemoteCall("download_url", mapped)
		return "", mapped
	}

	monitoring.RecordRemoteCall("download_url", nil)
	return req.URL, nil
}

// keyPrefix converts a logical path to a listing prefix ending in "/".
func (s *S3Store) keyPrefix(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		path = s.root
	}
	if path == "" {
		return ""
	}
	return path + "/"
}

// mapError assigns a typed error at the point the call failed. AWS
// fault codes are inspected here so callers never have to string-match
// on messages.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(op+" exceeded its deadline", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.NewNetworkError(op+" cancelled", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AllAccessDisabled":
			return apperrors.NewRemoteStoreError(apperrors.StoreCodePermissionDenied, op+" denied by bucket policy", err)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "TokenRefreshRequired":
			return apperrors.NewRemoteStoreError(apperrors.StoreCodeUnauthenticated, op+" rejected: invalid credentials", err)
		case "NoSuchBucket", "NoSuchKey":
			return apperrors.NewNotFoundError(op + ": object or bucket does not exist")
		default:
			return apperrors.NewRemoteStoreError(apperrors.StoreCodeGeneric, op+" failed: "+apiErr.ErrorCode(), err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.NewTimeoutError(op+" timed out", err)
		}
		return apperrors.NewNetworkError(op+" transport failure", err)
	}

	return apperrors.NewNetworkError(op+" failed", err)
}
