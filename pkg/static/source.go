package static

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// ErrNotExist is returned by a Source when the named file does not exist.
var ErrNotExist = fs.ErrNotExist

// File is an asset read from a Source.
type File struct {
	Data    []byte
	ModTime time.Time
}

// Source reads build output files by slash-separated relative name.
// Names passed in are already sanitized.
type Source interface {
	ReadFile(ctx context.Context, name string) (*File, error)
}

// =============================================================================
// Directory Source
// =============================================================================

// DirSource reads files from a directory on local disk.
type DirSource struct {
	root string
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Root returns the directory the source reads from.
func (d *DirSource) Root() string {
	return d.root
}

// ReadFile implements Source. Directories are reported as not existing.
func (d *DirSource) ReadFile(_ context.Context, name string) (*File, error) {
	full := filepath.Join(d.root, filepath.FromSlash(name))

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotExist
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return &File{Data: data, ModTime: info.ModTime()}, nil
}

// =============================================================================
// S3 Source
// =============================================================================

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads build output uploaded to an S3 bucket.
//
//	client := s3.New(s3.Options{Region: "eu-north-1"})
//	src := static.NewS3Source(client, "my-site", "releases/42/client/")
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Source returns a Source reading objects under prefix in bucket.
func NewS3Source(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// ReadFile implements Source. Missing keys are reported as ErrNotExist.
func (s *S3Source) ReadFile(ctx context.Context, name string) (*File, error) {
	key := s.prefix + name
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ssrerrors.New("E130").WithDetail(s.location(key)).Wrap(ErrNotExist)
		}
		return nil, ssrerrors.New("E131").WithDetail(s.location(key)).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, ssrerrors.New("E131").WithDetail(s.location(key)).Wrap(err)
	}

	f := &File{Data: data}
	if out.LastModified != nil {
		f.ModTime = *out.LastModified
	}
	return f, nil
}

func (s *S3Source) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// NewS3Client builds an S3 client for the given region. A non-empty endpoint
// overrides the AWS endpoint (MinIO, LocalStack) and switches to path-style
// addressing. Credentials come from the standard AWS environment variables
// when set; otherwise requests are sent anonymously, which suits public
// buckets.
func NewS3Client(region, endpoint string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "Environment",
		}, nil
	})
}
