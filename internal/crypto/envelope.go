// SPDX-License-Identifier: GPL-3.0-or-later

// Package crypto implements the optional payload envelope of spec.md §6:
// AES-{128,192,256}-CBC with a PBKDF2-derived key, applied to the HTTP and
// WebSocket body after compression on encode and before decompression on
// decode. This is used by internal/httpcodec and internal/ws and is kept
// as its own package because both need the identical envelope.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidKeyBits is returned when keyBits is not one of 128/192/256.
var ErrInvalidKeyBits = errors.New("crypto: X-AWH-Encryption key size must be 128, 192 or 256")

// ErrCiphertextTooShort is returned when the ciphertext is shorter than one
// AES block, so it cannot even contain the IV.
var ErrCiphertextTooShort = errors.New("crypto: ciphertext shorter than one AES block")

// pbkdf2Iterations matches a conservative, widely used default.
const pbkdf2Iterations = 4096

func deriveKey(passphrase, salt string, keyBits int) ([]byte, error) {
	switch keyBits {
	case 128, 192, 256:
	default:
		return nil, ErrInvalidKeyBits
	}
	return pbkdf2.Key([]byte(passphrase), []byte(salt), pbkdf2Iterations, keyBits/8, sha256.New), nil
}

// Encrypt implements the emit side of the payload envelope: AES-CBC with a
// random IV prepended to the ciphertext, matching the "X-AWH-Encryption:
// <keybits>" header contract of spec.md §6.
func Encrypt(plaintext []byte, passphrase, salt string, keyBits int) ([]byte, error) {
	key, err := deriveKey(passphrase, salt, keyBits)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(iv):], padded)
	return out, nil
}

// Decrypt implements the receive side of the payload envelope.
func Decrypt(ciphertext []byte, passphrase, salt string, keyBits int) ([]byte, error) {
	key, err := deriveKey(passphrase, salt, keyBits)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	blockSize := block.BlockSize()
	if len(ciphertext) < blockSize {
		return nil, ErrCiphertextTooShort
	}
	iv, body := ciphertext[:blockSize], ciphertext[blockSize:]
	if len(body)%blockSize != 0 {
		return nil, fmt.Errorf("crypto: ciphertext is not a multiple of the block size")
	}
	plainPadded := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainPadded, body)
	return pkcs7Unpad(plainPadded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("crypto: empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("crypto: invalid PKCS#7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("crypto: invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
