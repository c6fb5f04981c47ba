/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package tlsconfig builds a crypto/tls.Config for the reactor's TLS
// listeners from a validator-tagged configuration struct: certificate
// pair, minimum/maximum protocol version, and an optional client CA pool
// for mutual TLS.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	libval "github.com/go-playground/validator/v10"
)

// Config describes the certificate material and protocol bounds used to
// build a server-side *tls.Config.
type Config struct {
	CertFile             string `mapstructure:"certFile" json:"certFile" yaml:"certFile" toml:"certFile" validate:"required_with=KeyFile,omitempty,file"`
	KeyFile              string `mapstructure:"keyFile" json:"keyFile" yaml:"keyFile" toml:"keyFile" validate:"required_with=CertFile,omitempty,file"`
	ClientCAFile         string `mapstructure:"clientCAFile" json:"clientCAFile" yaml:"clientCAFile" toml:"clientCAFile" validate:"omitempty,file"`
	RequireClientCert    bool   `mapstructure:"requireClientCert" json:"requireClientCert" yaml:"requireClientCert" toml:"requireClientCert"`
	VersionMin           uint16 `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin" toml:"versionMin" validate:"omitempty,oneof=771 772"`
	VersionMax           uint16 `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax" toml:"versionMax" validate:"omitempty,oneof=771 772"`
	DynamicSizingDisable bool   `mapstructure:"dynamicSizingDisable" json:"dynamicSizingDisable" yaml:"dynamicSizingDisable" toml:"dynamicSizingDisable"`
	SessionTicketDisable bool   `mapstructure:"sessionTicketDisable" json:"sessionTicketDisable" yaml:"sessionTicketDisable" toml:"sessionTicketDisable"`
}

// Validate checks the struct tags above using go-playground/validator and
// returns a descriptive error naming every failing field and constraint.
func (c *Config) Validate() error {
	if er := libval.New().Struct(c); er != nil {
		if _, ok := er.(*libval.InvalidValidationError); ok {
			return er
		}

		var msg string
		for _, e := range er.(libval.ValidationErrors) {
			if msg != "" {
				msg += "; "
			}
			msg += fmt.Sprintf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag())
		}
		return fmt.Errorf("tlsconfig: %s", msg)
	}

	return nil
}

// Build validates the configuration and returns a *tls.Config ready to
// hand to tls.NewListener / tls.Server, with MinVersion defaulting to
// TLS 1.2 and MaxVersion to TLS 1.3 when left unset.
func (c *Config) Build() (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		MinVersion:               c.VersionMin,
		MaxVersion:               c.VersionMax,
		DynamicRecordSizingDisabled: c.DynamicSizingDisable,
		SessionTicketsDisabled:   c.SessionTicketDisable,
	}

	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	if cfg.MaxVersion == 0 {
		cfg.MaxVersion = tls.VersionTLS13
	}

	if c.CertFile != "" && c.KeyFile != "" {
		crt, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: load certificate pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{crt}
	}

	if c.ClientCAFile != "" {
		pem, err := os.ReadFile(c.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("tlsconfig: read client CA: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tlsconfig: no certificate found in %q", c.ClientCAFile)
		}

		cfg.ClientCAs = pool
		if c.RequireClientCert {
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			cfg.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	return cfg, nil
}
