package transcriber

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// TracedClient wraps http.Client and records per-phase timings for
// every request via httptrace.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient() *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// phaseClock accumulates httptrace callback timestamps for one request.
type phaseClock struct {
	m *NetworkMetrics

	connStart time.Time
	dnsStart  time.Time
	tcpStart  time.Time
	tlsStart  time.Time

	connReady  time.Time
	headersEnd time.Time
	bodyEnd    time.Time
	firstByte  time.Time
}

func (pc *phaseClock) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { pc.connStart = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			pc.connReady = time.Now()
			pc.m.ConnWait = pc.connReady.Sub(pc.connStart)
			pc.m.ConnReused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { pc.dnsStart = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { pc.m.DNS = time.Since(pc.dnsStart) },
		ConnectStart:      func(_, _ string) { pc.tcpStart = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { pc.m.TCP = time.Since(pc.tcpStart) },
		TLSHandshakeStart: func() { pc.tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			pc.m.TLS = time.Since(pc.tlsStart)
			pc.m.TLSProtocol = state.NegotiatedProtocol
		},
		WroteHeaders: func() {
			pc.headersEnd = time.Now()
			pc.m.ReqHeaders = pc.headersEnd.Sub(pc.connReady)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			pc.bodyEnd = time.Now()
			pc.m.ReqBody = pc.bodyEnd.Sub(pc.headersEnd)
		},
		GotFirstResponseByte: func() {
			pc.firstByte = time.Now()
			pc.m.TTFB = pc.firstByte.Sub(pc.bodyEnd)
		},
	}
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	pc := &phaseClock{m: &NetworkMetrics{}}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), pc.trace()))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	pc.m.Download = time.Since(pc.firstByte)
	pc.m.Total = time.Since(start)

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    pc.m,
	}, nil
}

// WarmConnection opens a connection ahead of the first transcription so
// the TLS handshake does not land on the critical path.
func (c *TracedClient) WarmConnection(url string) time.Duration {
	var tlsStart time.Time
	var tlsDur time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { tlsDur = time.Since(tlsStart) },
	}

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tlsDur
}
