// Package httpclient builds and sends the probe requests.
//
// [NewRequestBuilder] validates the base URL and header set once; every
// [RequestBuilder.Get] then clones the headers into a fresh request and,
// when a [TokenSource] is attached with [RequestBuilder.WithAuth], adds a
// bearer token:
//
//	builder, err := httpclient.NewRequestBuilder("http://localhost:8080", headers)
//	if err != nil {
//		return err
//	}
//	req, err := builder.WithAuth(provider).Get(ctx, "/q/health/ready")
//
// [NewClient] returns an http.Client tuned for many concurrent keep-alive
// connections to one host.
package httpclient
