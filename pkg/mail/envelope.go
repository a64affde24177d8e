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
	netmail "net/mail"

	"gopkg.in/gomail.v2"
)

// envelope returns the SMTP reverse-path and forward-paths of msg: Sender or
// else From, and every To, Cc and Bcc address once, in header order.
func envelope(msg *gomail.Message) (string, []string, error) {
	fromHeader := msg.GetHeader("Sender")
	if len(fromHeader) == 0 {
		fromHeader = msg.GetHeader("From")
	}
	if len(fromHeader) == 0 {
		return "", nil, errors.New(`invalid message: "From" field is absent`)
	}
	from, err := parseAddress(fromHeader[0])
	if err != nil {
		return "", nil, err
	}

	var to []string
	seen := map[string]bool{}
	for _, field := range []string{"To", "Cc", "Bcc"} {
		for _, value := range msg.GetHeader(field) {
			addr, err := parseAddress(value)
			if err != nil {
				return "", nil, err
			}
			if !seen[addr] {
				seen[addr] = true
				to = append(to, addr)
			}
		}
	}
	if len(to) == 0 {
		return "", nil, errors.New("invalid message: no recipients")
	}
	return from, to, nil
}

func parseAddress(field string) (string, error) {
	addr, err := netmail.ParseAddress(field)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", field, err)
	}
	return addr.Address, nil
}
