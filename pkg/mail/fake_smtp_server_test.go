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
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type receivedMail struct {
	From string
	To   []string
	Data string
}

// fakeSMTPServer is a minimal in-process SMTP server for transport tests.
type fakeSMTPServer struct {
	ln net.Listener

	// authMechanisms is advertised in EHLO when non-empty.
	authMechanisms string
	username       string
	password       string
	startTLS       bool
	rejectRcpt     string

	mu          sync.Mutex
	mails       []receivedMail
	commands    []string
	connections int
}

func newFakeSMTPServer(t *testing.T, configure func(s *fakeSMTPServer)) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTPServer{ln: ln}
	if configure != nil {
		configure(s)
	}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSMTPServer) config() TransportConfig {
	addr := s.ln.Addr().(*net.TCPAddr)
	return TransportConfig{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Login:    LoginDisabled,
		StartTLS: StartTLSDisabled,
	}
}

func (s *fakeSMTPServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.connections++
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *fakeSMTPServer) record(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	readLine := func() (string, error) {
		line, err := r.ReadString('\n')
		return strings.TrimRight(line, "\r\n"), err
	}
	reply := func(format string, args ...any) {
		fmt.Fprintf(conn, format+"\r\n", args...)
	}

	reply("220 localhost Test SMTP Service Ready")
	var current receivedMail
	for {
		line, err := readLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		s.record(verb)

		switch verb {
		case "EHLO", "HELO":
			reply("250-localhost Hello")
			if s.startTLS {
				reply("250-STARTTLS")
			}
			if s.authMechanisms != "" {
				reply("250-AUTH %s", s.authMechanisms)
			}
			reply("250 OK")
		case "AUTH":
			s.auth(line, readLine, reply)
		case "MAIL":
			current = receivedMail{From: between(line, "<", ">")}
			reply("250 OK")
		case "RCPT":
			rcpt := between(line, "<", ">")
			if rcpt == s.rejectRcpt {
				reply("550 mailbox unavailable")
				continue
			}
			current.To = append(current.To, rcpt)
			reply("250 OK")
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				dline, err := readLine()
				if err != nil {
					return
				}
				if dline == "." {
					break
				}
				data.WriteString(dline)
				data.WriteString("\n")
			}
			current.Data = data.String()
			s.mu.Lock()
			s.mails = append(s.mails, current)
			s.mu.Unlock()
			current = receivedMail{}
			reply("250 OK: queued as 12345")
		case "RSET":
			current = receivedMail{}
			reply("250 OK")
		case "NOOP":
			reply("250 OK")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

func (s *fakeSMTPServer) auth(line string, readLine func() (string, error), reply func(string, ...any)) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		reply("501 syntax error")
		return
	}
	decode := func(v string) string {
		b, _ := base64.StdEncoding.DecodeString(v)
		return string(b)
	}

	var user, pass string
	switch strings.ToUpper(fields[1]) {
	case "PLAIN":
		if len(fields) < 3 {
			reply("501 initial response required")
			return
		}
		parts := strings.Split(decode(fields[2]), "\x00")
		if len(parts) == 3 {
			user, pass = parts[1], parts[2]
		}
	case "LOGIN":
		reply("334 %s", base64.StdEncoding.EncodeToString([]byte("Username:")))
		u, err := readLine()
		if err != nil {
			return
		}
		reply("334 %s", base64.StdEncoding.EncodeToString([]byte("Password:")))
		p, err := readLine()
		if err != nil {
			return
		}
		user, pass = decode(u), decode(p)
	default:
		reply("504 mechanism not supported")
		return
	}

	if user == s.username && pass == s.password {
		reply("235 2.7.0 Authentication successful")
		return
	}
	reply("535 5.7.8 Authentication credentials invalid")
}

func (s *fakeSMTPServer) received() []receivedMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedMail(nil), s.mails...)
}

func (s *fakeSMTPServer) seen(verb string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.commands {
		if c == verb {
			n++
		}
	}
	return n
}

func (s *fakeSMTPServer) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	j := strings.LastIndex(s, end)
	if i < 0 || j <= i {
		return ""
	}
	return s[i+len(start) : j]
}
