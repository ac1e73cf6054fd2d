//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/errclass.go
//

package errclass

import (
	"context"
	"crypto/x509"
	"errors"
	"net"

	"github.com/anyks-go/awh/errs"
)

// New classifies err against the platform errno table (unix.go/windows.go)
// and a handful of well-known stdlib sentinel types, returning the shared
// [errs.Kind] taxonomy every awh component reports through.
//
// A nil err classifies to the zero [errs.Kind].
func New(err error) errs.Kind {
	if err == nil {
		return errs.Kind{}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errs.KindConnectTimeout
	case errors.Is(err, errETIMEDOUT):
		return errs.KindConnectTimeout
	case errors.Is(err, errECONNREFUSED):
		return errs.KindConnectRefused
	case errors.Is(err, errECONNRESET), errors.Is(err, errECONNABORTED):
		return errs.KindReadReset
	case errors.Is(err, errEHOSTUNREACH), errors.Is(err, errENETUNREACH), errors.Is(err, errENETDOWN):
		return errs.KindConnectRefused
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return errs.KindDNSTimeout
		}
		return errs.KindDNSNotFound
	}

	var certInvalid x509.CertificateInvalidError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certInvalid) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		return errs.KindTLSCertInvalid
	}

	return errs.KindTransportUnknown
}
