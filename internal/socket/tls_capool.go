// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"crypto/x509"
	"os"
	"path/filepath"
)

// loadCAPool builds a trust anchor from a file, a directory of PEM files,
// or falls back to the system pool when both are empty, per spec.md §4.2
// ("the CA trust anchor is either a file path, a directory, or the system
// default").
func loadCAPool(file, dir string) (*x509.CertPool, error) {
	if file == "" && dir == "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		return pool, nil
	}
	pool := x509.NewCertPool()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		pool.AppendCertsFromPEM(data)
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			pool.AppendCertsFromPEM(data)
		}
	}
	return pool, nil
}
