package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

const (
	// DefaultTavilyBaseURL is the Tavily REST endpoint.
	DefaultTavilyBaseURL = "https://api.tavily.com"

	// TavilySearchName is the name the model sees for TavilySearch.
	TavilySearchName = "tavily_search"

	tavilyEnvAPIKey    = "TAVILY_API_KEY"
	tavilyMaxResults   = 20
	tavilyDefaultLimit = 5
)

// ErrMissingAPIKey indicates a tool needs a key that is not configured.
var ErrMissingAPIKey = errors.New("api key not configured")

const tavilySchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 1, "description": "Search query to look up"},
    "topic": {"type": "string", "enum": ["general", "news", "finance"], "description": "Category of the search"},
    "search_depth": {"type": "string", "enum": ["basic", "advanced"], "description": "basic is faster, advanced is more thorough"},
    "include_domains": {"type": "array", "items": {"type": "string"}, "description": "Only return results from these domains"},
    "exclude_domains": {"type": "array", "items": {"type": "string"}, "description": "Never return results from these domains"}
  },
  "required": ["query"]
}`

const tavilyDescription = "A search engine optimized for comprehensive, accurate, and trusted results. " +
	"Useful for when you need to answer questions about current events. Input should be a search query."

// SearchArgs are the arguments of TavilySearch.
type SearchArgs struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

// SearchResponse is the JSON document TavilySearch returns to the model.
type SearchResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer,omitempty"`
	Results      []SearchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// SearchResult is one hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	Topic          string   `json:"topic,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type tavilyError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

// TavilySearch returns a web search tool backed by the Tavily API that
// yields at most maxResults hits (5 when maxResults <= 0, capped at 20).
//
// The API key comes from WithAPIKey or TAVILY_API_KEY and is looked up on
// each call, so a missing key surfaces as a tool error the model can see.
// The result is the search response as JSON.
func TavilySearch(maxResults int, opts ...Option) *Func[SearchArgs] {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = TavilySearchName
	}
	if o.baseURL == "" {
		o.baseURL = DefaultTavilyBaseURL
	}
	o.baseURL = strings.TrimRight(o.baseURL, "/")

	switch {
	case maxResults <= 0:
		maxResults = tavilyDefaultLimit
	case maxResults > tavilyMaxResults:
		maxResults = tavilyMaxResults
	}

	search := func(ctx context.Context, args SearchArgs) (string, error) {
		resp, err := retry.Do(ctx, o.retry, func(ctx context.Context) (*SearchResponse, error) {
			return tavilySearch(ctx, &o, maxResults, args)
		})
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(resp)
		if err != nil {
			return "", fmt.Errorf("encode search response: %w", err)
		}
		return string(out), nil
	}

	return NewFunc(o.name, tavilyDescription, tavilySchema, search)
}

func tavilySearch(ctx context.Context, o *options, maxResults int, args SearchArgs) (*SearchResponse, error) {
	key := o.apiKey
	if key == "" {
		key = o.getenv(tavilyEnvAPIKey)
	}
	if key == "" {
		return nil, fmt.Errorf("tavily: %w (set %s)", ErrMissingAPIKey, tavilyEnvAPIKey)
	}

	body, err := json.Marshal(tavilyRequest{
		Query:          args.Query,
		MaxResults:     maxResults,
		Topic:          args.Topic,
		SearchDepth:    args.SearchDepth,
		IncludeDomains: args.IncludeDomains,
		ExcludeDomains: args.ExcludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: encode request: %w", err)
	}

	endpoint := o.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("tavily: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		var apiErr tavilyError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail.Error != "" {
			msg = apiErr.Detail.Error
		}
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}

	var out SearchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}
	if out.Results == nil {
		out.Results = []SearchResult{}
	}
	return &out, nil
}
