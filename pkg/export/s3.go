package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configure the artifact archive. Credentials come from the
// default AWS chain unless a static key pair is given.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Archive uploads exported result files into an S3 bucket under
// <prefix>/<run_id>/<filename>. It archives whatever files the CSV
// exporter produced; a file another sink skipped is skipped here too.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	files  []string
}

// NewS3Archive builds the archive sink over the given local files.
func NewS3Archive(ctx context.Context, opts S3Options, files []string) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 archive needs a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Archive{
		client: s3.NewFromConfig(awsCfg),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		files:  append([]string(nil), files...),
	}, nil
}

// Name implements Sink.
func (a *S3Archive) Name() string {
	return "s3"
}

// Export implements Sink: every existing artifact file is uploaded under
// the run's key prefix.
func (a *S3Archive) Export(ctx context.Context, rep *Report) error {
	for _, file := range a.files {
		if err := a.upload(ctx, rep.RunID, file); err != nil {
			return err
		}
	}
	return nil
}

func (a *S3Archive) upload(ctx context.Context, runID, file string) error {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open artifact %s: %w", file, err)
	}
	defer f.Close()

	key := path.Join(a.prefix, runID, filepath.Base(file))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
