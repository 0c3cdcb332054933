// Package grpcjar wires a cookie jar into a gRPC client. The unary
// and stream interceptors attach stored cookies to outgoing request
// metadata under the "cookie" key and feed "set-cookie" and
// "set-cookie2" response header metadata back into the jar, giving a
// gRPC client the cookie behavior of a browser talking to its origin
// server.
package grpcjar

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rpcjar/rpcjar/pkg/jar"
	"github.com/rpcjar/rpcjar/pkg/logger"
)

// Metadata keys recognized by the interceptor. Response metadata
// under any other key is never inspected.
const (
	cookieHeader     = "cookie"
	setCookieHeader  = "set-cookie"
	setCookie2Header = "set-cookie2"
)

// ErrMissingAuthority is returned before any network I/O when the
// call's authority cannot be determined from the per-call override,
// the configured default, or the connection's dial target. Without an
// authority neither cookie selection nor storage can be scoped.
var ErrMissingAuthority = errors.New("grpcjar: authority cannot be determined for call")

// Interceptor binds a cookie jar to gRPC client calls. The zero value
// is not usable; construct with New. One Interceptor may serve any
// number of connections, and several Interceptors may share one jar.
type Interceptor struct {
	jar       *jar.Jar
	plaintext bool
	authority string
	log       logger.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithPlaintext sets whether the client is assumed to speak plaintext
// to the server. Plaintext calls synthesize http:// call URIs, which
// withholds secure cookies from the request. The default assumes an
// encrypted connection.
func WithPlaintext(plaintext bool) Option {
	return func(ic *Interceptor) { ic.plaintext = plaintext }
}

// WithAuthority sets the default authority (host[:port]) used for
// calls that carry no per-call override. It takes precedence over the
// connection's dial target.
func WithAuthority(authority string) Option {
	return func(ic *Interceptor) { ic.authority = authority }
}

// WithLogger sets the diagnostics logger. The default discards all
// messages.
func WithLogger(l logger.Logger) Option {
	return func(ic *Interceptor) { ic.log = l }
}

// New creates an Interceptor backed by the given jar. A nil jar gets
// a fresh private jar.
func New(j *jar.Jar, opts ...Option) *Interceptor {
	if j == nil {
		j = jar.New()
	}
	ic := &Interceptor{
		jar: j,
		log: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// Jar returns the jar backing this interceptor.
func (ic *Interceptor) Jar() *jar.Jar { return ic.jar }

type callAuthorityKey struct{}

// WithCallAuthority returns a context that overrides the authority
// for calls issued with it. It takes precedence over the
// Interceptor's configured authority and the dial target.
func WithCallAuthority(ctx context.Context, authority string) context.Context {
	return context.WithValue(ctx, callAuthorityKey{}, authority)
}

func callAuthority(ctx context.Context) string {
	a, _ := ctx.Value(callAuthorityKey{}).(string)
	return a
}

// UnaryClientInterceptor returns an interceptor for unary calls.
// Cookies matching the call URI are attached before the call is
// invoked; set-cookie response headers are stored afterward, so a
// cookie set by one call is visible to the next.
func (ic *Interceptor) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		u, err := ic.callURI(ctx, cc, method)
		if err != nil {
			return err
		}
		ctx = ic.inject(ctx, u)
		var hdr metadata.MD
		opts = append(opts, grpc.Header(&hdr))
		err = invoker(ctx, method, req, reply, cc, opts...)
		ic.capture(u, hdr)
		return err
	}
}

// StreamClientInterceptor returns an interceptor for streaming calls.
// Request cookies are attached before the stream is opened; response
// headers are stored when they become available, exactly once per
// stream.
func (ic *Interceptor) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		u, err := ic.callURI(ctx, cc, method)
		if err != nil {
			return nil, err
		}
		ctx = ic.inject(ctx, u)
		cs, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			return nil, err
		}
		return &cookieStream{ClientStream: cs, ic: ic, uri: u}, nil
	}
}

// callURI builds the URI that scopes cookie selection and storage for
// a call: scheme://authority/fullMethod. The authority is resolved
// from the per-call override, then the configured default, then the
// connection's dial target.
func (ic *Interceptor) callURI(ctx context.Context, cc *grpc.ClientConn, method string) (*url.URL, error) {
	authority := callAuthority(ctx)
	if authority == "" {
		authority = ic.authority
	}
	if authority == "" && cc != nil {
		authority = targetAuthority(cc.Target())
	}
	if authority == "" {
		return nil, ErrMissingAuthority
	}
	scheme := "https"
	if ic.plaintext {
		scheme = "http"
	}
	if !strings.HasPrefix(method, "/") {
		method = "/" + method
	}
	return &url.URL{Scheme: scheme, Host: authority, Path: method}, nil
}

// targetAuthority extracts host[:port] from a gRPC dial target such
// as "dns:///svc.example:443", "passthrough:///10.0.0.1:50051" or a
// bare "svc.example:443".
func targetAuthority(target string) string {
	if target == "" {
		return ""
	}
	if !strings.Contains(target, "://") {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	if u.Host != "" {
		return u.Host
	}
	return strings.TrimPrefix(u.Path, "/")
}

// inject appends the jar's matching cookies to the outgoing metadata.
func (ic *Interceptor) inject(ctx context.Context, u *url.URL) context.Context {
	pairs := ic.jar.Cookies(u)
	if len(pairs) == 0 {
		return ctx
	}
	kv := make([]string, 0, 2*len(pairs))
	for _, pair := range pairs {
		if !httpguts.ValidHeaderFieldValue(pair) {
			ic.log.Warning("grpcjar: dropping cookie with invalid header value for %s", u.Host)
			continue
		}
		kv = append(kv, cookieHeader, pair)
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// capture stores set-cookie response metadata into the jar. Jar-side
// rejections are logged by the jar itself and never fail the call.
func (ic *Interceptor) capture(u *url.URL, md metadata.MD) {
	if len(md) == 0 {
		return
	}
	var values []string
	values = append(values, md.Get(setCookieHeader)...)
	values = append(values, md.Get(setCookie2Header)...)
	if len(values) == 0 {
		return
	}
	if n := ic.jar.SetCookies(u, u.Path, values); n > 0 {
		ic.log.Info("grpcjar: stored %d cookie(s) for %s", n, u.Host)
	}
}
