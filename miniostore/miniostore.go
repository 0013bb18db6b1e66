// Package miniostore fetches referenced content from an S3-compatible store
// through the MinIO client. It serves local stacks and non-AWS object stores
// in place of awsstore.Objects.
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/bjaus/sqsdispatch"
)

// ErrNoEndpoint is returned by New when Config.Endpoint is empty.
var ErrNoEndpoint = errors.New("miniostore: endpoint is required")

// Config addresses the object store.
type Config struct {
	Endpoint string
	UseSSL   bool
	// AccessKeyID and SecretAccessKey are the ambient credentials. When
	// empty they are read from the AWS_* or MINIO_* environment variables.
	AccessKeyID     string
	SecretAccessKey string
}

// Objects implements sqsdispatch.ObjectFetcher on MinIO.
type Objects struct {
	endpoint string
	secure   bool
	ambient  *credentials.Credentials
	clients  cmap.ConcurrentMap[string, *minio.Client]
	logger   *slog.Logger
}

// New creates an Objects fetcher for cfg.Endpoint.
func New(cfg Config, logger *slog.Logger) (*Objects, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}

	ambient := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
	})
	if cfg.AccessKeyID != "" {
		ambient = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	o := &Objects{
		endpoint: cfg.Endpoint,
		secure:   cfg.UseSSL,
		ambient:  ambient,
		clients:  cmap.New[*minio.Client](),
		logger:   logger,
	}
	// Building one client up front rejects malformed endpoints early.
	if _, err := o.ambientClient(""); err != nil {
		return nil, err
	}

	logger.Info("object store client created",
		slog.String("endpoint", cfg.Endpoint),
		slog.Bool("ssl", cfg.UseSSL),
	)
	return o, nil
}

// Get reads the object at loc. Non-nil creds get a dedicated client; ambient
// clients are kept per region.
func (o *Objects) Get(ctx context.Context, loc sqsdispatch.Location, creds *sqsdispatch.Credentials) ([]byte, error) {
	client, err := o.client(loc.Region, creds)
	if err != nil {
		return nil, err
	}

	obj, err := client.GetObject(ctx, loc.Bucket, loc.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", loc.Bucket, loc.Path, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", loc.Bucket, loc.Path, err)
	}
	return content, nil
}

func (o *Objects) client(region string, creds *sqsdispatch.Credentials) (*minio.Client, error) {
	if creds == nil {
		return o.ambientClient(region)
	}
	return o.newClient(region, credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken))
}

func (o *Objects) ambientClient(region string) (*minio.Client, error) {
	if c, ok := o.clients.Get(region); ok {
		return c, nil
	}
	c, err := o.newClient(region, o.ambient)
	if err != nil {
		return nil, err
	}
	o.clients.SetIfAbsent(region, c)
	c, _ = o.clients.Get(region)
	return c, nil
}

func (o *Objects) newClient(region string, creds *credentials.Credentials) (*minio.Client, error) {
	c, err := minio.New(o.endpoint, &minio.Options{
		Creds:  creds,
		Secure: o.secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", o.endpoint, err)
	}
	return c, nil
}
