package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

// Transport abstracts where a request's cookies come from and where
// Set-Cookie headers go. The HTTP server writes straight to the response;
// the Lambda entrypoint buffers cookies and merges them into the function
// result after the handler chain returns.
type Transport interface {
	// CookieHeader returns the request's Cookie header, "" when absent.
	CookieHeader() string
	// EmitCookies appends serialized Set-Cookie headers to the response.
	// Emission without a destination is a silent no-op.
	EmitCookies(headers []string)
}

// ServerTransport adapts a live request/response pair.
type ServerTransport struct {
	Req *http.Request
	Res http.ResponseWriter
}

func (t ServerTransport) CookieHeader() string {
	if t.Req == nil {
		return ""
	}
	return t.Req.Header.Get("Cookie")
}

func (t ServerTransport) EmitCookies(headers []string) {
	if t.Res == nil {
		return
	}
	for _, header := range headers {
		// Add, not Set: earlier middleware may already have emitted cookies.
		t.Res.Header().Add("Set-Cookie", header)
	}
}

// CookieBuffer collects Set-Cookie headers emitted during an event-invoked
// request, for the entrypoint to copy into the function response.
type CookieBuffer struct {
	headers []string
}

func (b *CookieBuffer) append(headers []string) {
	b.headers = append(b.headers, headers...)
}

// Headers returns the buffered Set-Cookie values in emission order.
func (b *CookieBuffer) Headers() []string {
	return b.headers
}

// EventTransport adapts an API Gateway event. Cookies arrive pre-split in
// the event payload, sometimes additionally as a case-varied cookie header.
type EventTransport struct {
	Event events.APIGatewayV2HTTPRequest
	Out   *CookieBuffer
}

func (t EventTransport) CookieHeader() string {
	parts := append([]string(nil), t.Event.Cookies...)
	for name, value := range t.Event.Headers {
		if strings.EqualFold(name, "cookie") && value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "; ")
}

func (t EventTransport) EmitCookies(headers []string) {
	if t.Out == nil {
		return
	}
	t.Out.append(headers)
}

type eventTransportKeyType struct{}

var eventTransportKey eventTransportKeyType

// WithEventTransport stores an event transport on the context so handlers
// reached through the Lambda proxy resolve it instead of the raw writer.
func WithEventTransport(ctx context.Context, event events.APIGatewayV2HTTPRequest, out *CookieBuffer) context.Context {
	return context.WithValue(ctx, eventTransportKey, EventTransport{Event: event, Out: out})
}

// TransportFromGin resolves the transport for the current request: the
// event transport installed by the Lambda entrypoint when present, else
// the live request/response pair.
func TransportFromGin(c *gin.Context) Transport {
	if c.Request != nil {
		if t, ok := c.Request.Context().Value(eventTransportKey).(EventTransport); ok {
			return t
		}
	}
	var res http.ResponseWriter
	if c.Writer != nil {
		res = c.Writer
	}
	return ServerTransport{Req: c.Request, Res: res}
}
