package shared

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// NetworkConfig is a gateway endpoint together with the chain ID used for signing.
type NetworkConfig struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url" yaml:"url"`
	ChainID int64  `json:"chain_id" yaml:"chain_id"`
}

// Known gateway environments.
var (
	Local   = NetworkConfig{Name: "local", URL: "http://127.0.0.1:3000/v1", ChainID: 443}
	Dexynth = NetworkConfig{Name: "dexynth", URL: "https://rpc.dexynth-gateway.ten.xyz/v1", ChainID: 8443}
	Sepolia = NetworkConfig{Name: "sepolia", URL: "https://testnet-rpc.ten.xyz/v1", ChainID: 8443}
	UAT     = NetworkConfig{Name: "uat", URL: "https://rpc.uat-gw-testnet.ten.xyz/v1", ChainID: 7443}
)

var networks = map[string]NetworkConfig{
	Local.Name:   Local,
	Dexynth.Name: Dexynth,
	Sepolia.Name: Sepolia,
	UAT.Name:     UAT,
}

// Lookup returns the named environment. Names are case-insensitive.
func Lookup(name string) (NetworkConfig, error) {
	n, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(NetworkNames(), ", "))
	}
	return n, nil
}

// NetworkNames returns the known environment names in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithOverrides returns a copy of n with a non-empty URL and a positive chain ID applied.
func (n NetworkConfig) WithOverrides(rawURL string, chainID int64) NetworkConfig {
	if rawURL != "" {
		n.URL = strings.TrimRight(rawURL, "/")
	}
	if chainID > 0 {
		n.ChainID = chainID
	}
	return n
}

// Validate checks the URL is an absolute http(s) URL and the chain ID is positive.
func (n NetworkConfig) Validate() error {
	if n.URL == "" {
		return fmt.Errorf("network url required")
	}
	u, err := url.Parse(n.URL)
	if err != nil {
		return fmt.Errorf("invalid network url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("network url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("network url missing host")
	}
	if n.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", n.ChainID)
	}
	return nil
}

func (n NetworkConfig) String() string {
	return fmt.Sprintf("%s (%s, chain %d)", n.Name, n.URL, n.ChainID)
}
