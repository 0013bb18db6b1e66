package awsstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	ramtypes "github.com/aws/aws-sdk-go-v2/service/ram/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/sqsdispatch"
)

type fakeRAM struct {
	pages [][]string
	err   error
	calls []*ram.ListResourcesInput
}

func (f *fakeRAM) ListResources(_ context.Context, in *ram.ListResourcesInput, _ ...func(*ram.Options)) (*ram.ListResourcesOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if in.NextToken != nil {
		page = int((*in.NextToken)[0] - '0')
	}
	out := &ram.ListResourcesOutput{}
	for _, a := range f.pages[page] {
		out.Resources = append(out.Resources, ramtypes.Resource{Arn: aws.String(a)})
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

type fakeSSM struct {
	value  *string
	err    error
	in     *ssm.GetParameterInput
	region string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	var o ssm.Options
	for _, fn := range optFns {
		fn(&o)
	}
	f.region = o.Region
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: f.value}}, nil
}

type fakeSTS struct {
	err error
	in  *sts.AssumeRoleInput
	out *ststypes.Credentials
}

func (f *fakeSTS) AssumeRole(_ context.Context, in *sts.AssumeRoleInput, _ ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sts.AssumeRoleOutput{Credentials: f.out}, nil
}

type fakeS3 struct {
	body    string
	err     error
	in      *s3.GetObjectInput
	options s3.Options
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	f.options = s3.Options{Region: "us-east-1"}
	for _, fn := range optFns {
		fn(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

const paramARN = "arn:aws:ssm:sa-east-1:111122223333:parameter/shared/internal-storage"

func TestRegistryLocate(t *testing.T) {
	ctx := context.Background()

	t.Run("finds matching arn across pages", func(t *testing.T) {
		client := &fakeRAM{pages: [][]string{
			{"arn:aws:ssm:sa-east-1:111122223333:parameter/other"},
			{paramARN},
		}}
		r := NewRegistry(client, &fakeSSM{}, "")

		ref, err := r.Locate(ctx, sqsdispatch.DefaultRegistryParameter)

		require.NoError(t, err)
		assert.Equal(t, paramARN, ref)
		require.Len(t, client.calls, 2)
		assert.Equal(t, ramtypes.ResourceOwnerOtherAccounts, client.calls[0].ResourceOwner)
	})

	t.Run("not found", func(t *testing.T) {
		r := NewRegistry(&fakeRAM{pages: [][]string{{"arn:aws:ssm:sa-east-1:1:parameter/other"}}}, &fakeSSM{}, "SELF")

		_, err := r.Locate(ctx, sqsdispatch.DefaultRegistryParameter)

		assert.ErrorIs(t, err, sqsdispatch.ErrResourceNotFound)
	})

	t.Run("list error", func(t *testing.T) {
		boom := errors.New("access denied")
		r := NewRegistry(&fakeRAM{err: boom}, &fakeSSM{}, "")

		_, err := r.Locate(ctx, sqsdispatch.DefaultRegistryParameter)

		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, sqsdispatch.ErrResourceNotFound)
	})
}

func TestRegistryFetchValue(t *testing.T) {
	ctx := context.Background()

	t.Run("decrypts in the arn region", func(t *testing.T) {
		client := &fakeSSM{value: aws.String(`[{"bucketName": "b"}]`)}
		r := NewRegistry(&fakeRAM{}, client, "")

		raw, err := r.FetchValue(ctx, paramARN)

		require.NoError(t, err)
		assert.Equal(t, `[{"bucketName": "b"}]`, string(raw))
		assert.Equal(t, paramARN, aws.ToString(client.in.Name))
		assert.True(t, aws.ToBool(client.in.WithDecryption))
		assert.Equal(t, "sa-east-1", client.region)
	})

	t.Run("plain name keeps client region", func(t *testing.T) {
		client := &fakeSSM{value: aws.String(`[]`)}

		_, err := NewRegistry(&fakeRAM{}, client, "").FetchValue(ctx, "/shared/internal-storage")

		require.NoError(t, err)
		assert.Empty(t, client.region)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewRegistry(&fakeRAM{}, &fakeSSM{err: errors.New("kms")}, "").FetchValue(ctx, paramARN)
		assert.ErrorContains(t, err, "kms")

		_, err = NewRegistry(&fakeRAM{}, &fakeSSM{}, "").FetchValue(ctx, paramARN)
		assert.ErrorContains(t, err, "empty value")
	})
}

func TestExchangerAssume(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("returns credentials", func(t *testing.T) {
		client := &fakeSTS{out: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIA"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(expires),
		}}
		e := NewExchanger(client, "", 15*time.Minute)

		creds, err := e.Assume(ctx, "arn:aws:iam::1:role/reader")

		require.NoError(t, err)
		assert.Equal(t, &sqsdispatch.Credentials{
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
			SessionToken:    "token",
			Expires:         expires,
		}, creds)
		assert.Equal(t, "arn:aws:iam::1:role/reader", aws.ToString(client.in.RoleArn))
		assert.Equal(t, DefaultSessionName, aws.ToString(client.in.RoleSessionName))
		assert.Equal(t, int32(900), aws.ToInt32(client.in.DurationSeconds))
	})

	t.Run("zero duration is left to sts", func(t *testing.T) {
		client := &fakeSTS{out: &ststypes.Credentials{}}

		_, err := NewExchanger(client, "worker", 0).Assume(ctx, "arn:aws:iam::1:role/reader")

		require.NoError(t, err)
		assert.Nil(t, client.in.DurationSeconds)
		assert.Equal(t, "worker", aws.ToString(client.in.RoleSessionName))
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewExchanger(&fakeSTS{err: errors.New("denied")}, "", 0).Assume(ctx, "r")
		assert.ErrorContains(t, err, "denied")

		_, err = NewExchanger(&fakeSTS{}, "", 0).Assume(ctx, "r")
		assert.ErrorContains(t, err, "no credentials")
	})
}

func TestObjectsGet(t *testing.T) {
	ctx := context.Background()
	loc := sqsdispatch.Location{Bucket: "primary", Region: "us-west-2", Path: "orders/1.json"}

	t.Run("uses assumed credentials and bucket region", func(t *testing.T) {
		client := &fakeS3{body: `{"orderId": "o-1"}`}
		creds := &sqsdispatch.Credentials{AccessKeyID: "AKIA", SecretAccessKey: "secret", SessionToken: "token"}

		content, err := NewObjects(client).Get(ctx, loc, creds)

		require.NoError(t, err)
		assert.Equal(t, `{"orderId": "o-1"}`, string(content))
		assert.Equal(t, "primary", aws.ToString(client.in.Bucket))
		assert.Equal(t, "orders/1.json", aws.ToString(client.in.Key))
		assert.Equal(t, "us-west-2", client.options.Region)
		require.NotNil(t, client.options.Credentials)
		got, err := client.options.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKIA", got.AccessKeyID)
		assert.Equal(t, "token", got.SessionToken)
	})

	t.Run("ambient credentials", func(t *testing.T) {
		client := &fakeS3{body: `{}`}

		_, err := NewObjects(client).Get(ctx, loc, nil)

		require.NoError(t, err)
		assert.Nil(t, client.options.Credentials)
	})

	t.Run("error", func(t *testing.T) {
		_, err := NewObjects(&fakeS3{err: errors.New("no such key")}).Get(ctx, loc, nil)

		assert.ErrorContains(t, err, "s3://primary/orders/1.json")
	})
}

func TestStoreResolver(t *testing.T) {
	store := NewFromConfig(aws.Config{Region: "us-east-1"}, Config{})

	assert.NotNil(t, store.Registry)
	assert.NotNil(t, store.Exchanger)
	assert.NotNil(t, store.Objects)
	assert.Equal(t, DefaultSessionName, store.Exchanger.sessionName)
	assert.Equal(t, DefaultDuration, store.Exchanger.duration)
	assert.Equal(t, ramtypes.ResourceOwnerOtherAccounts, store.Registry.owner)
	assert.NotNil(t, store.Resolver())
}

func TestStoreResolvesThroughAWS(t *testing.T) {
	ctx := context.Background()
	s3Client := &fakeS3{body: `{"orderId": "stored"}`}
	store := &Store{
		Registry: NewRegistry(
			&fakeRAM{pages: [][]string{{paramARN}}},
			&fakeSSM{value: aws.String(`[{"bucketName": "primary", "region": "us-west-2", "roleArn": "arn:aws:iam::1:role/reader", "default": true}]`)},
			"",
		),
		Exchanger: NewExchanger(&fakeSTS{out: &ststypes.Credentials{AccessKeyId: aws.String("AKIA")}}, "", 0),
		Objects:   NewObjects(s3Client),
	}
	rec, err := sqsdispatch.Parse(eventMessage(`{"pathRef": "orders/1.json"}`))
	require.NoError(t, err)

	out, err := store.Resolver().ResolveIfNeeded(ctx, rec)

	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId": "stored"}`, string(out.Body))
	assert.Equal(t, "us-west-2", s3Client.options.Region)
}

func eventMessage(body string) events.SQSMessage {
	return events.SQSMessage{MessageId: "m-1", Body: body}
}
