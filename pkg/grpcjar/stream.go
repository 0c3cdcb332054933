package grpcjar

import (
	"net/url"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// cookieStream wraps a client stream to feed the response headers
// into the jar once they arrive. Capture happens at most once per
// stream, whether headers are observed through Header or as a side
// effect of receiving the first message.
type cookieStream struct {
	grpc.ClientStream
	ic   *Interceptor
	uri  *url.URL
	once sync.Once
}

func (s *cookieStream) Header() (metadata.MD, error) {
	md, err := s.ClientStream.Header()
	if err == nil {
		s.captureOnce(md)
	}
	return md, err
}

func (s *cookieStream) RecvMsg(m any) error {
	err := s.ClientStream.RecvMsg(m)
	// Headers are settled once a message (or the stream's end) has
	// been received; Header no longer blocks here.
	if md, herr := s.ClientStream.Header(); herr == nil {
		s.captureOnce(md)
	}
	return err
}

func (s *cookieStream) captureOnce(md metadata.MD) {
	s.once.Do(func() {
		s.ic.capture(s.uri, md)
	})
}
