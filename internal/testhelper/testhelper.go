// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for package tests.
package testhelper

import (
	"net/http"
	"os"
	"testing"
)

// MockRoundTripper is a http.RoundTripper that delegates to Fn.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// FileResponder returns a round trip function that answers every request with the
// content of file and the given status code.
func FileResponder(t *testing.T, file string, status int) func(*http.Request) (*http.Response, error) {
	t.Helper()
	return func(*http.Request) (*http.Response, error) {
		data, err := os.Open(file)
		if err != nil {
			t.Fatalf("failed to open JSON response file: %s", err)
		}
		return &http.Response{
			StatusCode: status,
			Body:       data,
			Header:     make(http.Header),
		}, nil
	}
}
