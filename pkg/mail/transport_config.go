/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mail

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strconv"
	"strings"
)

// LoginOption controls whether the transport authenticates.
type LoginOption string

const (
	LoginRequired LoginOption = "REQUIRED"
	LoginDisabled LoginOption = "DISABLED"
)

// StartTLSMode controls the STARTTLS upgrade on plain connections.
type StartTLSMode string

const (
	StartTLSRequired StartTLSMode = "REQUIRED"
	StartTLSDisabled StartTLSMode = "DISABLED"
)

// implicitTLSPort is the SMTPS port on which the connection is TLS from the
// first byte.
const implicitTLSPort = 465

// TransportConfig describes one SMTP endpoint and how to talk to it.
type TransportConfig struct {
	Host     string
	Port     int
	TrustAll bool

	// Username and Password are only set together; Login is LoginDisabled otherwise.
	Username string
	Password string
	Login    LoginOption

	StartTLS StartTLSMode

	KeyStore         string
	KeyStorePassword string

	// AuthMethods is a space separated, upper case list of SASL mechanisms in
	// order of preference. Empty means the transport picks.
	AuthMethods string
}

// Address returns host:port.
func (c TransportConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ImplicitTLS reports whether the connection must be TLS wrapped before the
// SMTP greeting.
func (c TransportConfig) ImplicitTLS() bool {
	return c.Port == implicitTLSPort
}

// Key identifies configurations that may share a connection. Secrets are
// hashed into the key and never appear in it.
func (c TransportConfig) Key() string {
	h := sha256.New()
	for _, part := range []string{
		c.Host,
		strconv.Itoa(c.Port),
		strconv.FormatBool(c.TrustAll),
		c.Username,
		c.Password,
		string(c.Login),
		string(c.StartTLS),
		c.KeyStore,
		c.KeyStorePassword,
		c.AuthMethods,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return c.Address() + "#" + hex.EncodeToString(h.Sum(nil))[:16]
}

// authMechanisms returns the configured mechanisms, or the default order
// CRAM-MD5, PLAIN, LOGIN when none are configured.
func (c TransportConfig) authMechanisms() []string {
	if methods := strings.Fields(c.AuthMethods); len(methods) > 0 {
		return methods
	}
	return []string{"CRAM-MD5", "PLAIN", "LOGIN"}
}
