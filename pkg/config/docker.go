package config

import (
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

const dockerHostGateway = "host.docker.internal"

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to the Docker host gateway when
// running inside a container, so a MinIO or Azurite on the host stays
// reachable. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	return rewriteLocalhost(host)
}

// ResolveEndpointForDocker applies ResolveHostForDocker to the host part of
// an endpoint given as a URL or as host[:port].
func ResolveEndpointForDocker(endpoint string) string {
	if !IsRunningInDocker() {
		return endpoint
	}
	return rewriteEndpoint(endpoint)
}

func rewriteLocalhost(host string) string {
	if host == "localhost" || host == "127.0.0.1" {
		return dockerHostGateway
	}
	return host
}

func rewriteEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" {
			return endpoint
		}
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(rewriteLocalhost(u.Hostname()), port)
		} else {
			u.Host = rewriteLocalhost(u.Hostname())
		}
		return u.String()
	}

	if host, port, err := net.SplitHostPort(endpoint); err == nil {
		return net.JoinHostPort(rewriteLocalhost(host), port)
	}
	return rewriteLocalhost(endpoint)
}
