package webclient

import "context"

// WebClient performs HTTP requests on behalf of the scraping components.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}

// Isolator is implemented by clients that can hand out a copy with its own
// connection pool. Callers close the copy when done.
type Isolator interface {
	Isolated() WebClient
}
