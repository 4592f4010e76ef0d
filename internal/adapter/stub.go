package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// HTTPAdapter is a generic ClientAdapter backed by a provider's HTTP search
// API. It is the concrete shape every platform-specific adapter
// (Twitter/YouTube/TikTok/Instagram) takes; those concrete
// HTTP integrations are external collaborators specified only by the
// ClientAdapter interface, so this type ships with a pluggable query
// function instead of a hardcoded provider SDK.
type HTTPAdapter struct {
	platform     platformtypes.Platform
	httpClient   *http.Client
	authConfig   map[string]interface{}
	requiredKeys []string

	// query is injected per platform; it performs the actual HTTP search
	// request and returns raw items. Left nil in tests that only exercise
	// config transformation or test_data-backed tasks.
	query func(ctx context.Context, client *http.Client, auth map[string]interface{}, cfg map[string]interface{}) ([]platformtypes.RawItem, *platformtypes.CollectionError)

	ready bool
}

// NewHTTPAdapter constructs an adapter for platform, validating abstract
// configs against requiredKeys ("query", "from_time", ...).
func NewHTTPAdapter(
	platform platformtypes.Platform,
	authConfig map[string]interface{},
	requiredKeys []string,
	query func(ctx context.Context, client *http.Client, auth map[string]interface{}, cfg map[string]interface{}) ([]platformtypes.RawItem, *platformtypes.CollectionError),
) *HTTPAdapter {
	return &HTTPAdapter{
		platform:     platform,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authConfig:   authConfig,
		requiredKeys: requiredKeys,
		query:        query,
	}
}

func (a *HTTPAdapter) PlatformName() platformtypes.Platform { return a.platform }

// Setup validates that the auth config carries credentials. It is
// idempotent and safe to call repeatedly; callers retry on failure on
// their next processing pass.
func (a *HTTPAdapter) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if len(a.authConfig) == 0 {
		return fmt.Errorf("adapter %s: empty auth config", a.platform)
	}
	a.ready = true
	return nil
}

func (a *HTTPAdapter) TransformConfig(ctx context.Context, abstract platformtypes.AbstractConfig) (interface{}, error) {
	for _, key := range a.requiredKeys {
		switch key {
		case "query":
			if abstract.Query == "" {
				return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindInvalidConfig, Reason: "missing query"}
			}
		case "from_time":
			if abstract.FromTime == nil {
				return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindInvalidConfig, Reason: "missing from_time"}
			}
		case "to_time":
			if abstract.ToTime == nil {
				return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindInvalidConfig, Reason: "missing to_time"}
			}
		}
	}
	return a.serialize(abstract), nil
}

func (a *HTTPAdapter) TransformConfigToSerializable(ctx context.Context, abstract platformtypes.AbstractConfig) (map[string]interface{}, error) {
	if _, err := a.TransformConfig(ctx, abstract); err != nil {
		return nil, err
	}
	return a.serialize(abstract), nil
}

func (a *HTTPAdapter) serialize(abstract platformtypes.AbstractConfig) map[string]interface{} {
	out := map[string]interface{}{
		"query":    abstract.Query,
		"limit":    abstract.Limit,
		"language": abstract.Language,
	}
	if abstract.FromTime != nil {
		out["from_time"] = abstract.FromTime.Format(time.RFC3339)
	}
	if abstract.ToTime != nil {
		out["to_time"] = abstract.ToTime.Format(time.RFC3339)
	}
	if abstract.LocationBase != "" {
		out["location_base"] = abstract.LocationBase
	}
	if abstract.LocationMod != "" {
		out["location_mod"] = abstract.LocationMod
	}
	for k, v := range abstract.Extra {
		out[k] = v
	}
	return out
}

func (a *HTTPAdapter) ExecuteTask(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error) {
	if err := a.Setup(ctx); err != nil {
		return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindTransientCollection, Cause: err}
	}
	if a.query == nil {
		return nil, &platformtypes.CollectionError{Kind: platformtypes.ErrKindTransientCollection, Cause: fmt.Errorf("adapter %s: no query function configured", a.platform)}
	}

	start := time.Now()
	items, cerr := a.query(ctx, a.httpClient, a.authConfig, task.PlatformConfig)
	if cerr != nil {
		return nil, cerr
	}

	return &platformtypes.CollectionResult{
		Task:           task,
		Posts:          items,
		CollectedItems: len(items),
		DurationMs:     time.Since(start).Milliseconds(),
		ExecutionTS:    start,
	}, nil
}

func (a *HTTPAdapter) CreatePostEntry(raw platformtypes.RawItem, task *platformtypes.Task) platformtypes.Post {
	postType := raw.PostType
	if postType == "" {
		postType = platformtypes.PostTypeRegular
	}
	return platformtypes.Post{
		Platform:        a.platform,
		PlatformID:      raw.PlatformID,
		PostURL:         raw.PostURL,
		DateCreated:     raw.DateCreated,
		DateCollected:   time.Now().UTC(),
		PostType:        postType,
		Content:         raw.Content,
		MetadataContent: raw.Metadata,
	}
}
