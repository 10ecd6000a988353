// Package proxy builds an HTTP client that tunnels through a SOCKS5 proxy,
// for networks where the model provider is not directly reachable.
package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Timeout is generous because speech synthesis responses stream a whole
// audio file.
const clientTimeout = 120 * time.Second

func NewSocksClient(addr string) (*http.Client, error) {
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, address)
			}
			return dialer.Dial(network, address)
		},
	}

	return &http.Client{Transport: transport, Timeout: clientTimeout}, nil
}
