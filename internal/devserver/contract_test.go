// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package devserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"

	"github.com/rejourney/rejourney-go/internal/tokencache"
)

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile("openapi.yaml")
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

// validateAgainstContract replays req through the handler and checks the
// recorded response against the schema declared for its route and status.
func validateAgainstContract(t *testing.T, ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	doc := loadOpenAPIDoc(t)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	router, err := legacy.NewRouter(doc)
	require.NoError(t, err, "openapi router init")

	route, pathParams, err := router.FindRoute(req)
	require.NoError(t, err, "openapi route lookup for %s %s", req.Method, req.URL.Path)

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: rr.Code,
		Header: rr.Header(),
	}
	input.SetBodyBytes(rr.Body.Bytes())

	require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input),
		"openapi response validation for %s %s -> %d: %s", req.Method, req.URL.Path, rr.Code, rr.Body.String())
	return rr
}

func contractRequest(t *testing.T, method, path, key string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if key != "" {
		req.Header.Set(headerAPIKey, key)
	}
	return req
}

func TestContractDeviceAuth(t *testing.T) {
	ts := newTestServer(t, nil)
	fp := strings.Repeat("aa", 32)

	t.Run("granted", func(t *testing.T) {
		body := []byte(`{"deviceId":"` + fp + `","metadata":{"platform":"android","osVersion":"14"}}`)
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodPost, "/api/ingest/auth/device", testProjectKey, body))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unauthorized", func(t *testing.T) {
		body := []byte(`{"deviceId":"` + fp + `"}`)
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodPost, "/api/ingest/auth/device", "pk_bogus", body))
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("bad request", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodPost, "/api/ingest/auth/device", testProjectKey, []byte(`{"deviceId":""}`)))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestContractDeviceLookup(t *testing.T) {
	ts := newTestServer(t, nil)
	fp := strings.Repeat("bb", 32)
	ts.issueToken(t, fp)

	t.Run("found", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodGet, "/api/ingest/auth/device/"+fp, testProjectKey, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodGet, "/api/ingest/auth/device/absent", testProjectKey, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestContractDeviceList(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.issueToken(t, strings.Repeat("dd", 32))
	ts.issueToken(t, strings.Repeat("ee", 32))

	t.Run("page", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodGet, "/api/ingest/auth/devices?limit=1", testProjectKey, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unauthorized", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodGet, "/api/ingest/auth/devices", "", nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodGet, "/api/ingest/auth/devices?limit=0", testProjectKey, nil))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestContractVerify(t *testing.T) {
	ts := newTestServer(t, nil)
	fp := strings.Repeat("cc", 32)
	token := ts.issueToken(t, fp)

	t.Run("valid", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodPost, "/api/ingest/auth/verify", testProjectKey, []byte(`{"token":"`+token+`"}`)))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("invalid", func(t *testing.T) {
		rr := validateAgainstContract(t, ts,
			contractRequest(t, http.MethodPost, "/api/ingest/auth/verify", testProjectKey, []byte(`{"token":"`+tokencache.Mint()+`"}`)))
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestContractHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := validateAgainstContract(t, ts,
		contractRequest(t, http.MethodGet, "/healthz", "", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
