package cascade

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/net/http2"

	"cascade-bridge/internal/fault"
	"cascade-bridge/internal/wire"
)

const servicePrefix = "/exa.language_server_pb.LanguageServerService/"

// rpcDoer issues one unary gRPC call and returns the raw framed response
// body. Errors are tagged with the bridge taxonomy.
type rpcDoer interface {
	do(ctx context.Context, port int, csrf, method string, payload []byte) ([]byte, error)
}

// h2cDoer speaks gRPC over cleartext HTTP/2 to the local language
// server. A fresh transport is used per call and torn down on return;
// connection setup is dwarfed by inference latency and pooling would keep
// sockets open across the long poll gaps.
type h2cDoer struct{}

func (h2cDoer) do(ctx context.Context, port int, csrf, method string, payload []byte) ([]byte, error) {
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	defer transport.CloseIdleConnections()

	endpoint := fmt.Sprintf("http://127.0.0.1:%d%s%s", port, servicePrefix, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(wire.Frame(payload)))
	if err != nil {
		return nil, fault.Wrap(fault.Internal, err, "construct %s request", method)
	}
	req.Header.Set("Content-Type", "application/grpc")
	req.Header.Set("TE", "trailers")
	req.Header.Set("Grpc-Accept-Encoding", "identity,gzip")
	req.Header.Set("X-Codeium-Csrf-Token", csrf)

	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.ConnectionFailed, err, "%s rpc to port %d", method, port)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.ConnectionFailed, err, "read %s response", method)
	}

	// The gRPC status lives in the trailers, which net/http exposes only
	// after the body is drained. Trailers-only responses carry it in the
	// header block instead.
	statusText := resp.Trailer.Get("Grpc-Status")
	message := resp.Trailer.Get("Grpc-Message")
	if statusText == "" {
		statusText = resp.Header.Get("Grpc-Status")
		message = resp.Header.Get("Grpc-Message")
	}

	if statusText != "" && statusText != "0" {
		status, convErr := strconv.Atoi(statusText)
		if convErr != nil {
			status = -1
		}
		return nil, &fault.Error{
			Code:        fault.StreamError,
			Message:     fmt.Sprintf("%s returned grpc status %s", method, statusText),
			GRPCStatus:  status,
			GRPCMessage: decodeGRPCMessage(message),
		}
	}
	return body, nil
}

// decodeGRPCMessage percent-decodes a grpc-message trailer value,
// returning the raw text when decoding fails.
func decodeGRPCMessage(message string) string {
	decoded, err := url.PathUnescape(message)
	if err != nil {
		return message
	}
	return decoded
}
