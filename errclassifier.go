// SPDX-License-Identifier: GPL-3.0-or-later

package awh

import (
	"github.com/anyks-go/awh/errclass"
	"github.com/anyks-go/awh/errs"
)

// ErrClassifier classifies errors into the shared [errs.Kind] taxonomy so
// every structured log line ("errClass" field) and every error(...)
// callback report failures using the same vocabulary, per the taxonomy
// errs documents.
type ErrClassifier interface {
	Classify(err error) errs.Kind
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	op.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) errs.Kind

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) errs.Kind {
	return f(err)
}

// DefaultErrClassifier classifies via the platform errno table in
// [errclass.New], mapping connect/read/DNS/TLS failures onto the taxonomy
// every other component already reports through.
var DefaultErrClassifier = ErrClassifierFunc(errclass.New)
