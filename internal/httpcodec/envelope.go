// SPDX-License-Identifier: GPL-3.0-or-later

package httpcodec

import (
	"github.com/anyks-go/awh/internal/crypto"
	"github.com/anyks-go/awh/settings"
)

// PrepareBody applies the emit-side payload envelope of spec.md §6:
// compress-then-encrypt. When keyBits is 0 the envelope is skipped and
// only compression runs.
func PrepareBody(body []byte, compressor settings.Compressor, passphrase, salt string, keyBits int) ([]byte, error) {
	out, err := Compress(compressor, body)
	if err != nil {
		return nil, err
	}
	if keyBits == 0 {
		return out, nil
	}
	return crypto.Encrypt(out, passphrase, salt, keyBits)
}

// RecoverBody applies the receive-side payload envelope: decrypt-then-
// decompress, the inverse of PrepareBody.
func RecoverBody(body []byte, compressor settings.Compressor, passphrase, salt string, keyBits int) ([]byte, error) {
	in := body
	if keyBits != 0 {
		plain, err := crypto.Decrypt(body, passphrase, salt, keyBits)
		if err != nil {
			return nil, err
		}
		in = plain
	}
	return Decompress(compressor, in)
}
