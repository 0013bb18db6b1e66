package awsstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	ramtypes "github.com/aws/aws-sdk-go-v2/service/ram/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/bjaus/sqsdispatch"
)

// Registry locates shared parameters through RAM and reads them from SSM.
type Registry struct {
	ram   RAMAPI
	ssm   SSMAPI
	owner ramtypes.ResourceOwner
}

// NewRegistry creates a Registry listing resources shared with owner.
func NewRegistry(ramClient RAMAPI, ssmClient SSMAPI, owner string) *Registry {
	if owner == "" {
		owner = DefaultResourceOwner
	}
	return &Registry{ram: ramClient, ssm: ssmClient, owner: ramtypes.ResourceOwner(owner)}
}

// Locate returns the ARN of the first shared resource whose ARN contains name.
// It returns an error wrapping sqsdispatch.ErrResourceNotFound when no
// resource matches.
func (r *Registry) Locate(ctx context.Context, name string) (string, error) {
	pages := ram.NewListResourcesPaginator(r.ram, &ram.ListResourcesInput{
		ResourceOwner: r.owner,
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list shared resources: %w", err)
		}
		for _, res := range page.Resources {
			if a := aws.ToString(res.Arn); strings.Contains(a, name) {
				return a, nil
			}
		}
	}
	return "", fmt.Errorf("no shared resource with %s in its arn: %w", name, sqsdispatch.ErrResourceNotFound)
}

// FetchValue reads and decrypts the parameter with the given ARN. The call
// is sent to the region named in the ARN.
func (r *Registry) FetchValue(ctx context.Context, ref string) ([]byte, error) {
	var optFns []func(*ssm.Options)
	if parsed, err := arn.Parse(ref); err == nil && parsed.Region != "" {
		optFns = append(optFns, func(o *ssm.Options) {
			o.Region = parsed.Region
		})
	}

	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(ref),
		WithDecryption: aws.Bool(true),
	}, optFns...)
	if err != nil {
		return nil, fmt.Errorf("get parameter %s: %w", ref, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("get parameter %s: empty value", ref)
	}
	return []byte(*out.Parameter.Value), nil
}
