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

// Package reactor implements a readiness-driven TCP server core speaking
// HTTP/1.x and the WebSocket protocol on top of plain TCP or TLS: an
// incremental request parser, a Content-Length body reader, a per-session
// write queue with back-pressure, and a worker/poller pair driving it all.
package reactor

import (
	"runtime"

	libval "github.com/go-playground/validator/v10"
	"github.com/sabouaram/reactor/errors"
	"github.com/sabouaram/reactor/tlsconfig"
	"github.com/spf13/viper"
)

// ListenConfig describes the address the server binds to; TLS material
// lives on Config.TLS. It replaces the teacher's socketcfg.Server shape, which
// has no non-test source in the retrieval pack (see DESIGN.md).
type ListenConfig struct {
	Network string `mapstructure:"network" json:"network" yaml:"network" toml:"network" validate:"required,oneof=tcp tcp4 tcp6"`
	Address string `mapstructure:"address" json:"address" yaml:"address" toml:"address" validate:"required"`
}

// Config holds every tunable named in the external-interfaces section of
// the specification: parser limits, pipelining and WebSocket budgets,
// worker count, listen address, and optional TLS material.
type Config struct {
	MethodLenLimit        uint16 `mapstructure:"methodLenLimit" json:"methodLenLimit" yaml:"methodLenLimit" toml:"methodLenLimit" validate:"required,gte=1"`
	PathLenLimit          uint16 `mapstructure:"pathLenLimit" json:"pathLenLimit" yaml:"pathLenLimit" toml:"pathLenLimit" validate:"required,gte=1"`
	QueryLenLimit         uint16 `mapstructure:"queryLenLimit" json:"queryLenLimit" yaml:"queryLenLimit" toml:"queryLenLimit" validate:"gte=0"`
	HeadersCountLimit     uint16 `mapstructure:"headersCountLimit" json:"headersCountLimit" yaml:"headersCountLimit" toml:"headersCountLimit" validate:"required,gte=1"`
	HeaderNameLenLimit    uint16 `mapstructure:"headerNameLenLimit" json:"headerNameLenLimit" yaml:"headerNameLenLimit" toml:"headerNameLenLimit" validate:"required,gte=1"`
	HeaderValueLenLimit   uint16 `mapstructure:"headerValueLenLimit" json:"headerValueLenLimit" yaml:"headerValueLenLimit" toml:"headerValueLenLimit" validate:"required,gte=1"`
	PipeliningReqLimit    uint16 `mapstructure:"pipeliningReqLimit" json:"pipeliningReqLimit" yaml:"pipeliningReqLimit" toml:"pipeliningReqLimit" validate:"required,gte=1"`
	WebSocketPayloadLimit uint64 `mapstructure:"websocketPayloadLimit" json:"websocketPayloadLimit" yaml:"websocketPayloadLimit" toml:"websocketPayloadLimit" validate:"required,gte=1"`
	NumThreads            int    `mapstructure:"numThreads" json:"numThreads" yaml:"numThreads" toml:"numThreads" validate:"gte=0"`
	Listen                ListenConfig     `mapstructure:"listen" json:"listen" yaml:"listen" toml:"listen" validate:"required"`
	TLS                   *tlsconfig.Config `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls" validate:"omitempty"`
}

// Limits is the subset of Config the header parser consults on every push.
// Pipelining is carried along but read by neither the parser nor the
// session: no cap on requests parsed per read is enforced.
type Limits struct {
	MethodLen   uint16
	PathLen     uint16
	QueryLen    uint16
	HeaderName  uint16
	HeaderValue uint16
	HeaderCount uint16
	Pipelining  uint16
}

// Limits projects the parser-relevant fields of Config.
func (c *Config) Limits() Limits {
	return Limits{
		MethodLen:   c.MethodLenLimit,
		PathLen:     c.PathLenLimit,
		QueryLen:    c.QueryLenLimit,
		HeaderName:  c.HeaderNameLenLimit,
		HeaderValue: c.HeaderValueLenLimit,
		HeaderCount: c.HeadersCountLimit,
		Pipelining:  c.PipeliningReqLimit,
	}
}

// DefaultConfig returns sane limits for a single-host deployment: generous
// enough for real browsers, tight enough to bound worst-case memory per
// connection.
func DefaultConfig() *Config {
	return &Config{
		MethodLenLimit:        16,
		PathLenLimit:          2048,
		QueryLenLimit:         2048,
		HeadersCountLimit:     64,
		HeaderNameLenLimit:    128,
		HeaderValueLenLimit:   4096,
		PipeliningReqLimit:    16,
		WebSocketPayloadLimit: 1 << 20,
		NumThreads:            runtime.NumCPU(),
		Listen: ListenConfig{
			Network: "tcp",
			Address: ":8080",
		},
	}
}

// Validate checks every struct tag above with go-playground/validator and,
// when set, validates the embedded TLS configuration.
func (c *Config) Validate() errors.Error {
	err := ErrorConfigValidate.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, fe := range ve {
				err.Add(ErrorConfigValidate.Errorf("config field '%s' is not validated by constraint '%s'", fe.StructNamespace(), fe.ActualTag()))
			}
		}
	}

	if c.TLS != nil {
		if _, e := c.TLS.Build(); e != nil {
			err.Add(ErrorTLSBuild.Error(e))
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// ConfigFromViper loads a Config from the given viper instance, applying
// DefaultConfig's values for anything left unset, following the same
// Unmarshal-then-validate idiom the teacher's configuration packages use.
func ConfigFromViper(v *viper.Viper) (*Config, errors.Error) {
	cfg := DefaultConfig()

	if v != nil {
		if er := v.Unmarshal(cfg); er != nil {
			return nil, ErrorConfigValidate.Error(er)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
