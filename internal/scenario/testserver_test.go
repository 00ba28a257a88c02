package scenario

import (
	"net"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// newTestClient serves handler on an in-memory listener and returns a client
// wired to it.
func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *HTTPClient {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return NewHTTPClient(ClientConfig{
		BaseURL: "http://loadtest.local",
		Dial:    func(string) (net.Conn, error) { return ln.Dial() },
	})
}
