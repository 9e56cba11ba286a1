// Package httpclient provides the HTTP client shared by the request/response
// link and the event-stream connector: default headers, authentication,
// TLS, retry with backoff and streaming responses.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Auth:    httpclient.APIKeyAuth("x-api-key", key),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/graphql",
//	    Body:   payload,
//	})
//
// # Streaming
//
// DoStream returns the response body unread so the caller can frame it,
// e.g. with sse.NewReader. Retry is never applied to streams; reconnection
// belongs to the stream consumer.
package httpclient
