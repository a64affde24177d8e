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
	"errors"
	"fmt"
	"net/smtp"
	"slices"
	"strings"
)

// selectAuth picks the first mechanism in cfg's preference list that the
// server advertised. advertised is the parameter string of the EHLO AUTH
// extension.
func selectAuth(cfg TransportConfig, advertised string) (smtp.Auth, error) {
	offered := strings.Fields(strings.ToUpper(advertised))
	for _, mechanism := range cfg.authMechanisms() {
		if !slices.Contains(offered, mechanism) {
			continue
		}
		switch mechanism {
		case "CRAM-MD5":
			return smtp.CRAMMD5Auth(cfg.Username, cfg.Password), nil
		case "PLAIN":
			return smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host), nil
		case "LOGIN":
			return &loginAuth{username: cfg.Username, password: cfg.Password}, nil
		}
	}
	return nil, fmt.Errorf("no supported auth mechanism: server offers %q, configured %q",
		advertised, strings.Join(cfg.authMechanisms(), " "))
}

// loginAuth implements the LOGIN mechanism, which net/smtp does not ship.
type loginAuth struct {
	username string
	password string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unexpected server challenge %q", fromServer)
	}
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
