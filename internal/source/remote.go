package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RemoteConfig holds credentials and endpoints for cloud locations. Empty
// fields fall back to each SDK's default credential chain.
type RemoteConfig struct {
	S3Region    string
	S3Endpoint  string // for S3-compatible stores; enables path-style addressing
	S3AccessKey string
	S3SecretKey string

	// AzureConnectionString defaults to $AZURE_STORAGE_CONNECTION_STRING.
	AzureConnectionString string
}

// RemoteConfigFromEnv reads the LOGSIFT_S3_* and Azure variables.
func RemoteConfigFromEnv() RemoteConfig {
	return RemoteConfig{
		S3Region:              os.Getenv("LOGSIFT_S3_REGION"),
		S3Endpoint:            os.Getenv("LOGSIFT_S3_ENDPOINT"),
		S3AccessKey:           os.Getenv("LOGSIFT_S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("LOGSIFT_S3_SECRET_KEY"),
		AzureConnectionString: os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
	}
}

// splitBucket splits "bucket/key/with/slashes".
func splitBucket(rest string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: want <bucket>/<object>, got %q", ErrBadLocation, rest)
	}
	return bucket, key, nil
}

func (o *Opener) openRemote(ctx context.Context, scheme, rest string) (io.ReadCloser, error) {
	bucket, key, err := splitBucket(rest)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("opening remote object", "scheme", scheme, "bucket", bucket, "key", key)

	switch scheme {
	case "s3":
		return o.openS3(ctx, bucket, key)
	case "gs":
		return openGCS(ctx, bucket, key)
	case "azblob":
		return o.openAzure(ctx, bucket, key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func (o *Opener) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.remote.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.remote.S3Region))
	}
	if o.remote.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.remote.S3AccessKey, o.remote.S3SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.remote.S3Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.remote.S3Endpoint)
			opts.UsePathStyle = true
		}
	})
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func openGCS(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, err)
	}
	// The client lives as long as the reader.
	return &stackedCloser{Reader: r, closers: []io.Closer{r, client}}, nil
}

func (o *Opener) openAzure(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	conn := o.remote.AzureConnectionString
	if conn == "" {
		conn = os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	}
	if conn == "" {
		return nil, errors.New("azblob: no connection string (set AZURE_STORAGE_CONNECTION_STRING)")
	}
	client, err := azblob.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob client: %w", err)
	}
	resp, err := client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob://%s/%s: %w", container, blob, err)
	}
	return resp.Body, nil
}
