// Package awsstore implements the sqsdispatch content collaborators on AWS.
//
// The shared bucket list is found through Resource Access Manager and read
// from SSM Parameter Store. Role credentials come from STS, and objects are
// read from S3.
//
//	store, err := awsstore.New(ctx, awsstore.Config{})
//	if err != nil {
//	    return err
//	}
//	engine := sqsdispatch.New(factory, sqsdispatch.WithResolver(store.Resolver()))
package awsstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/bjaus/sqsdispatch"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultRegistryRegion = "us-east-1"
	DefaultResourceOwner  = "OTHER-ACCOUNTS"
	DefaultSessionName    = "sqsdispatch"
	DefaultDuration       = 15 * time.Minute
)

// RAMAPI is the subset of the RAM client used by Registry.
type RAMAPI interface {
	ListResources(ctx context.Context, in *ram.ListResourcesInput, optFns ...func(*ram.Options)) (*ram.ListResourcesOutput, error)
}

// SSMAPI is the subset of the SSM client used by Registry.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// STSAPI is the subset of the STS client used by Exchanger.
type STSAPI interface {
	AssumeRole(ctx context.Context, in *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// S3API is the subset of the S3 client used by Objects.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config selects where the registry lives and how roles are assumed.
type Config struct {
	// RegistryRegion is the region RAM is queried in.
	RegistryRegion string
	// ResourceOwner filters RAM resources, OTHER-ACCOUNTS or SELF.
	ResourceOwner string
	// SessionName names assumed-role sessions.
	SessionName string
	// Duration is the lifetime requested for assumed-role credentials.
	Duration time.Duration
}

func (c Config) withDefaults() Config {
	if c.RegistryRegion == "" {
		c.RegistryRegion = DefaultRegistryRegion
	}
	if c.ResourceOwner == "" {
		c.ResourceOwner = DefaultResourceOwner
	}
	if c.SessionName == "" {
		c.SessionName = DefaultSessionName
	}
	if c.Duration == 0 {
		c.Duration = DefaultDuration
	}
	return c
}

// Store bundles the three AWS collaborators.
type Store struct {
	Registry  *Registry
	Exchanger *Exchanger
	Objects   *Objects
}

// New loads the default AWS configuration and builds a Store from it.
func New(ctx context.Context, cfg Config, optFns ...func(*awsconfig.LoadOptions) error) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFromConfig(awsCfg, cfg), nil
}

// NewFromConfig builds a Store from an existing AWS configuration.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Store {
	cfg = cfg.withDefaults()
	ramClient := ram.NewFromConfig(awsCfg, func(o *ram.Options) {
		o.Region = cfg.RegistryRegion
	})
	return &Store{
		Registry:  NewRegistry(ramClient, ssm.NewFromConfig(awsCfg), cfg.ResourceOwner),
		Exchanger: NewExchanger(sts.NewFromConfig(awsCfg), cfg.SessionName, cfg.Duration),
		Objects:   NewObjects(s3.NewFromConfig(awsCfg)),
	}
}

// Resolver returns a sqsdispatch.Resolver backed by the store.
func (s *Store) Resolver(opts ...sqsdispatch.ResolverOption) *sqsdispatch.Resolver {
	return sqsdispatch.NewResolver(s.Registry, s.Exchanger, s.Objects, opts...)
}
