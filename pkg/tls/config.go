// Package tls builds the server TLS configuration for the API, from
// certificate files or a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/saga-graph/pkg/validation"
)

// Config configures TLS for the API listener
type Config struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	CertFile string `yaml:"cert_file" toml:"cert_file"`
	KeyFile  string `yaml:"key_file" toml:"key_file"`

	// AutoGenerate creates a self-signed certificate for Hosts when no
	// certificate files are set. For local development only.
	AutoGenerate bool          `yaml:"auto_generate" toml:"auto_generate"`
	Hosts        []string      `yaml:"hosts" toml:"hosts"`
	ValidFor     time.Duration `yaml:"valid_for" toml:"valid_for"`

	// MinVersion is "1.2" or "1.3"
	MinVersion string `yaml:"min_version" toml:"min_version"`
}

// DefaultConfig returns TLS disabled with secure settings for when it is
// enabled
func DefaultConfig() Config {
	return Config{
		Hosts:      []string{"localhost", "127.0.0.1"},
		ValidFor:   365 * 24 * time.Hour,
		MinVersion: "1.2",
	}
}

var versions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// ErrNoCertificate is returned when TLS is enabled without a certificate
// source
var ErrNoCertificate = errors.New("tls enabled without certificate files or auto_generate")

// Validate checks the configuration. Nothing is checked while disabled.
func (c Config) Validate() error {
	return validation.NewConfigValidator("tls.Config").
		When(c.Enabled, func(v *validation.ConfigValidator) {
			v.OneOf("MinVersion", c.MinVersion, []string{"1.2", "1.3"}).
				Custom("CertFile", func() error {
					if (c.CertFile == "") != (c.KeyFile == "") {
						return errors.New("cert_file and key_file must be set together")
					}
					if c.CertFile == "" && !c.AutoGenerate {
						return ErrNoCertificate
					}
					return nil
				}).
				When(c.CertFile == "" && c.AutoGenerate, func(v *validation.ConfigValidator) {
					v.MinDuration("ValidFor", c.ValidFor, time.Hour)
				})
		}).
		Validate()
}

// Load returns the server TLS configuration, or nil when TLS is disabled
func Load(c Config) (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var (
		cert tls.Certificate
		err  error
	)
	if c.CertFile != "" {
		cert, err = tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load certificate: %w", err)
		}
	} else {
		cert, err = SelfSigned(c.Hosts, c.ValidFor)
		if err != nil {
			return nil, fmt.Errorf("generate certificate: %w", err)
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   versions[c.MinVersion],
		CipherSuites: SecureCipherSuites(),
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}

// SecureCipherSuites lists the TLS 1.2 suites offered. TLS 1.3 suites are
// not configurable.
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	}
}
