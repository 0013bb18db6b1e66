package awsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/bjaus/sqsdispatch"
)

// Exchanger assumes roles through STS.
type Exchanger struct {
	sts         STSAPI
	sessionName string
	duration    time.Duration
}

// NewExchanger creates an Exchanger. A zero duration leaves the lifetime to STS.
func NewExchanger(client STSAPI, sessionName string, duration time.Duration) *Exchanger {
	if sessionName == "" {
		sessionName = DefaultSessionName
	}
	return &Exchanger{sts: client, sessionName: sessionName, duration: duration}
}

// Assume returns temporary credentials for roleARN.
func (e *Exchanger) Assume(ctx context.Context, roleARN string) (*sqsdispatch.Credentials, error) {
	in := &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(e.sessionName),
	}
	if e.duration > 0 {
		in.DurationSeconds = aws.Int32(int32(e.duration / time.Second))
	}

	out, err := e.sts.AssumeRole(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("assume role: %w", err)
	}
	if out.Credentials == nil {
		return nil, errors.New("assume role: no credentials returned")
	}
	return &sqsdispatch.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expires:         aws.ToTime(out.Credentials.Expiration),
	}, nil
}
