package awsstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bjaus/sqsdispatch"
)

// Objects reads objects from S3 with one client, overriding region and
// credentials per request.
type Objects struct {
	s3 S3API
}

// NewObjects creates an Objects fetcher.
func NewObjects(client S3API) *Objects {
	return &Objects{s3: client}
}

// Get reads the object at loc. Nil creds uses the client's own credentials.
func (o *Objects) Get(ctx context.Context, loc sqsdispatch.Location, creds *sqsdispatch.Credentials) ([]byte, error) {
	out, err := o.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Path),
	}, requestOptions(loc, creds))
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", loc.Bucket, loc.Path, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", loc.Bucket, loc.Path, err)
	}
	return content, nil
}

func requestOptions(loc sqsdispatch.Location, creds *sqsdispatch.Credentials) func(*s3.Options) {
	return func(o *s3.Options) {
		if loc.Region != "" {
			o.Region = loc.Region
		}
		if creds != nil {
			o.Credentials = credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
		}
	}
}
