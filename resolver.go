package sqsdispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bjaus/sqsdispatch/internal/logging"
)

// Body fields that mark a content reference.
const (
	// PathRefField holds an object path resolved against the shared bucket list.
	PathRefField = "pathRef"

	// LocationField holds an explicit {bucketName, region, path} location.
	LocationField = "location"
)

// DefaultRegistryParameter names the shared registry entry holding the bucket list.
const DefaultRegistryParameter = "/shared/internal-storage"

var explicitLocation = And(
	IsObject(LocationField),
	StringFields(LocationField+".bucketName", LocationField+".region", LocationField+".path"),
)

// Bucket describes one storage location from the shared bucket list.
type Bucket struct {
	Name    string `json:"bucketName"`
	Region  string `json:"region"`
	RoleARN string `json:"roleArn,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// Location addresses a single stored object.
type Location struct {
	Bucket string
	Region string
	Path   string
}

// Credentials are short-lived access keys obtained by assuming a role.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expires         time.Time
}

// Registry looks up shared configuration. Locate finds the reference of a
// named resource; FetchValue reads the value behind a reference.
type Registry interface {
	Locate(ctx context.Context, name string) (string, error)
	FetchValue(ctx context.Context, ref string) ([]byte, error)
}

// CredentialExchanger trades a role ARN for short-lived credentials.
type CredentialExchanger interface {
	Assume(ctx context.Context, roleARN string) (*Credentials, error)
}

// ObjectFetcher reads an object. A nil creds means the ambient credentials
// of the process.
type ObjectFetcher interface {
	Get(ctx context.Context, loc Location, creds *Credentials) ([]byte, error)
}

// Resolver replaces reference bodies with the content they point to.
//
// Bucket list lookups are cached for the life of the Resolver and shared by
// every invocation that uses it. ClearCache drops them.
type Resolver struct {
	registry  Registry
	exchanger CredentialExchanger
	objects   ObjectFetcher
	parameter string
	logger    *slog.Logger
	inspector Inspector

	refs    *coalescingCache[string]
	buckets *coalescingCache[[]Bucket]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRegistryParameter sets the registry entry holding the bucket list.
func WithRegistryParameter(name string) ResolverOption {
	return func(r *Resolver) {
		r.parameter = name
	}
}

// WithResolverLogger sets the logger used for failed fetch attempts.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver backed by the given collaborators.
func NewResolver(registry Registry, exchanger CredentialExchanger, objects ObjectFetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry:  registry,
		exchanger: exchanger,
		objects:   objects,
		parameter: DefaultRegistryParameter,
		logger:    slog.Default(),
		inspector: JSONInspector(),
		refs:      newCoalescingCache[string](),
		buckets:   newCoalescingCache[[]Bucket](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ClearCache drops every memoized registry lookup.
func (r *Resolver) ClearCache() {
	r.refs.Clear()
	r.buckets.Clear()
}

// HasReference reports whether body carries a content reference.
func HasReference(body []byte) bool {
	view, err := JSONInspector().Inspect(body)
	if err != nil {
		return false
	}
	return view.HasField(PathRefField) || view.HasField(LocationField)
}

// ResolveIfNeeded returns rec with its body replaced by the referenced content.
// Records without a reference are returned unchanged. Calling it on a nil
// Resolver fails for records that need resolution.
func (r *Resolver) ResolveIfNeeded(ctx context.Context, rec Record) (Record, error) {
	if !HasReference(rec.Body) {
		return rec, nil
	}
	if r == nil {
		return Record{}, &ContentResolutionError{
			Kind:      KindNotConfigured,
			MessageID: rec.MessageID,
			Err:       errors.New("body references stored content but no resolver is configured"),
		}
	}

	content, err := r.fetch(ctx, rec.Body)
	if err != nil {
		// Registry errors may be shared by coalesced callers, so tag a copy.
		var cerr *ContentResolutionError
		if errors.As(err, &cerr) {
			tagged := *cerr
			tagged.MessageID = rec.MessageID
			return Record{}, &tagged
		}
		return Record{}, err
	}

	body, err := decodeBody(rec.MessageID, content)
	if err != nil {
		return Record{}, err
	}
	rec.Body = body
	return rec, nil
}

func (r *Resolver) fetch(ctx context.Context, body []byte) ([]byte, error) {
	view, err := r.inspector.Inspect(body)
	if err != nil {
		return nil, resolutionError(KindInvalidReference, err)
	}

	if view.HasField(PathRefField) {
		path, ok := view.GetString(PathRefField)
		if !ok || path == "" {
			return nil, resolutionError(KindInvalidReference, fmt.Errorf("%s must be a non-empty string", PathRefField))
		}
		return r.fetchByPath(ctx, path)
	}

	if !explicitLocation.Match(view) {
		return nil, resolutionError(KindInvalidReference, fmt.Errorf("%s requires bucketName, region and path", LocationField))
	}
	loc := Location{}
	loc.Bucket, _ = view.GetString(LocationField + ".bucketName")
	loc.Region, _ = view.GetString(LocationField + ".region")
	loc.Path, _ = view.GetString(LocationField + ".path")

	content, err := r.objects.Get(ctx, loc, nil)
	if err != nil {
		return nil, resolutionError(KindFetch, fmt.Errorf("get %s from bucket %s: %w", loc.Path, loc.Bucket, err))
	}
	return content, nil
}

// fetchByPath tries the default bucket, then the fallback bucket.
func (r *Resolver) fetchByPath(ctx context.Context, path string) ([]byte, error) {
	list, err := r.bucketList(ctx)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, b := range candidates(list) {
		content, err := r.fetchFrom(ctx, b, path)
		if err == nil {
			return content, nil
		}
		r.logger.WarnContext(ctx, "failed to fetch content from bucket",
			slog.String(logging.FieldBucket, b.Name),
			slog.String(logging.FieldRegion, b.Region),
			logging.Error(err),
		)
		errs = append(errs, err)
	}
	return nil, resolutionError(KindFetch, fmt.Errorf("get %s from default and fallback buckets: %w", path, errors.Join(errs...)))
}

func (r *Resolver) fetchFrom(ctx context.Context, b Bucket, path string) ([]byte, error) {
	var creds *Credentials
	if b.RoleARN != "" {
		var err error
		creds, err = r.exchanger.Assume(ctx, b.RoleARN)
		if err != nil {
			return nil, resolutionError(KindCredentialExchange, fmt.Errorf("assume %s: %w", b.RoleARN, err))
		}
	}
	content, err := r.objects.Get(ctx, Location{Bucket: b.Name, Region: b.Region, Path: path}, creds)
	if err != nil {
		return nil, resolutionError(KindFetch, fmt.Errorf("get %s from bucket %s: %w", path, b.Name, err))
	}
	return content, nil
}

// bucketList returns the shared bucket list, locating and reading the
// registry entry at most once per cache lifetime.
func (r *Resolver) bucketList(ctx context.Context) ([]Bucket, error) {
	ref, err := r.refs.Get(ctx, r.parameter, func(ctx context.Context) (string, error) {
		ref, err := r.registry.Locate(ctx, r.parameter)
		if err != nil {
			kind := KindRegistryLookup
			if errors.Is(err, ErrResourceNotFound) {
				kind = KindResourceNotFound
			}
			return "", resolutionError(kind, fmt.Errorf("locate %s: %w", r.parameter, err))
		}
		return ref, nil
	})
	if err != nil {
		return nil, err
	}

	return r.buckets.Get(ctx, ref, func(ctx context.Context) ([]Bucket, error) {
		raw, err := r.registry.FetchValue(ctx, ref)
		if err != nil {
			return nil, resolutionError(KindRegistryLookup, fmt.Errorf("read %s: %w", ref, err))
		}
		var list []Bucket
		if err := bodyCodec.Unmarshal(raw, &list); err != nil {
			return nil, resolutionError(KindRegistryLookup, fmt.Errorf("decode bucket list: %w", err))
		}
		if len(list) == 0 {
			return nil, resolutionError(KindRegistryLookup, errors.New("bucket list is empty"))
		}
		return list, nil
	})
}

// candidates orders the bucket list for a path lookup: the default bucket,
// then the first other bucket. Without a default flag list order is used.
func candidates(list []Bucket) []Bucket {
	def := -1
	for i, b := range list {
		if b.Default {
			def = i
			break
		}
	}
	if def < 0 {
		return list[:min(2, len(list))]
	}
	out := []Bucket{list[def]}
	for i, b := range list {
		if i != def {
			return append(out, b)
		}
	}
	return out
}
