package tool

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/randalmurphal/graphchat/pkg/retry"
)

// WebFetchName is the name the model sees for WebFetch.
const WebFetchName = "web_fetch"

const webFetchSchema = `{
  "type": "object",
  "properties": {
    "url": {"type": "string", "minLength": 1, "description": "Address of the page; https:// is assumed when no scheme is given"}
  },
  "required": ["url"]
}`

const webFetchDescription = "Fetch a web page and return its content as Markdown. " +
	"Use it to read a page found by a search."

// FetchArgs are the arguments of WebFetch.
type FetchArgs struct {
	URL string `json:"url"`
}

// WebFetch returns a tool that downloads a page and converts HTML to
// Markdown. Other text content types are returned as is. Responses larger
// than the body limit (WithMaxBodySize) are rejected.
func WebFetch(opts ...Option) *Func[FetchArgs] {
	o := buildOptions(opts)
	if o.name == "" {
		o.name = WebFetchName
	}

	fetch := func(ctx context.Context, args FetchArgs) (string, error) {
		return retry.Do(ctx, o.retry, func(ctx context.Context) (string, error) {
			return fetchPage(ctx, &o, args.URL)
		})
	}

	return NewFunc(o.name, webFetchDescription, webFetchSchema, fetch)
}

// normalizeURL trims u and adds https:// when it has no scheme.
func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

func fetchPage(ctx context.Context, o *options, rawURL string) (string, error) {
	url := normalizeURL(rawURL)
	if url == "" {
		return "", fmt.Errorf("web fetch: url cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("web fetch: create request: %w", err)
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Endpoint: url}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("web fetch %s: read body: %w", url, err)
	}
	if int64(len(data)) > o.maxBodySize {
		return "", fmt.Errorf("web fetch %s: body exceeds %d bytes", url, o.maxBodySize)
	}

	if !isHTML(resp.Header.Get("Content-Type")) {
		return string(data), nil
	}

	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("web fetch %s: convert to markdown: %w", url, err)
	}
	return strings.TrimSpace(md), nil
}

// isHTML treats a missing content type as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
