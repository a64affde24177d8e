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
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadKeyStore reads a client certificate and its private key. Files ending in
// .p12 or .pfx are decoded as PKCS#12, anything else as a PEM bundle holding
// the certificate chain and the key.
func LoadKeyStore(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read key store %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		blocks, err := pkcs12.ToPEM(data, password)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to decode PKCS#12 key store %s: %w", path, err)
		}
		return keyPairFromBlocks(blocks, "")
	default:
		var blocks []*pem.Block
		for rest := data; ; {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			blocks = append(blocks, block)
		}
		if len(blocks) == 0 {
			return tls.Certificate{}, fmt.Errorf("key store %s contains no PEM data", path)
		}
		return keyPairFromBlocks(blocks, password)
	}
}

func keyPairFromBlocks(blocks []*pem.Block, password string) (tls.Certificate, error) {
	var certPEM, keyPEM []byte
	for _, block := range blocks {
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			//nolint:staticcheck // legacy RFC 1423 encrypted keys are still issued by some PKIs
			if x509.IsEncryptedPEMBlock(block) {
				if password == "" {
					return tls.Certificate{}, errors.New("private key is encrypted but no key store password is set")
				}
				//nolint:staticcheck
				der, err := x509.DecryptPEMBlock(block, []byte(password))
				if err != nil {
					return tls.Certificate{}, fmt.Errorf("failed to decrypt private key: %w", err)
				}
				block = &pem.Block{Type: block.Type, Bytes: der}
			}
			keyPEM = pem.EncodeToMemory(block)
		}
	}
	if certPEM == nil {
		return tls.Certificate{}, errors.New("key store contains no certificate")
	}
	if keyPEM == nil {
		return tls.Certificate{}, errors.New("key store contains no private key")
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}
