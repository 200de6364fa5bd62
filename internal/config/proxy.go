package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProxyConfig is the reverse-proxy route/cluster table for non-intercepted traffic.
// Requests that match no route fall through to the backend base URL.
type ProxyConfig struct {
	Routes     []ProxyRoute            `yaml:"routes"`
	Clusters   map[string]ProxyCluster `yaml:"clusters"`
	TimeoutSec int                     `yaml:"timeout_sec"`
}

const defaultProxyTimeout = 60 * time.Second

// Timeout is the per-request deadline for proxied traffic.
func (p ProxyConfig) Timeout() time.Duration {
	if p.TimeoutSec <= 0 {
		return defaultProxyTimeout
	}
	return time.Duration(p.TimeoutSec) * time.Second
}

// ProxyRoute sends every request under PathPrefix to Cluster.
type ProxyRoute struct {
	PathPrefix string `yaml:"path_prefix"`
	Cluster    string `yaml:"cluster"`
}

// ProxyCluster is a set of equivalent destinations balanced round-robin.
type ProxyCluster struct {
	Destinations []string `yaml:"destinations"`
}

// LoadProxyConfig reads a YAML route table from path.
func LoadProxyConfig(path string) (*ProxyConfig, error) {
	//nolint:gosec // path is operator-controlled configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy routes file %s: %w", path, err)
	}
	var pc ProxyConfig
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to parse proxy routes file %s: %w", path, err)
	}
	return &pc, nil
}

// Validate checks that every route names a known cluster with absolute destination URLs.
func (p ProxyConfig) Validate() error {
	for _, r := range p.Routes {
		if !strings.HasPrefix(r.PathPrefix, "/") {
			return fmt.Errorf("proxy route prefix %q must start with /", r.PathPrefix)
		}
		cl, ok := p.Clusters[r.Cluster]
		if !ok {
			return fmt.Errorf("proxy route %q references unknown cluster %q", r.PathPrefix, r.Cluster)
		}
		if len(cl.Destinations) == 0 {
			return fmt.Errorf("proxy cluster %q has no destinations", r.Cluster)
		}
		for _, d := range cl.Destinations {
			u, err := url.Parse(d)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("proxy cluster %q destination %q is not an absolute URL", r.Cluster, d)
			}
		}
	}
	return nil
}

// OrderedRoutes returns the routes longest prefix first so the most specific mount wins.
func (p ProxyConfig) OrderedRoutes() []ProxyRoute {
	out := make([]ProxyRoute, len(p.Routes))
	copy(out, p.Routes)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].PathPrefix) > len(out[j].PathPrefix)
	})
	return out
}
