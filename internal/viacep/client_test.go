package viacep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quitanda/backend/internal/domain/address"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01001000/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"cep": "01001-000",
			"logradouro": "Praça da Sé",
			"complemento": "lado ímpar",
			"bairro": "Sé",
			"localidade": "São Paulo",
			"uf": "SP",
			"estado": "São Paulo",
			"ibge": "3550308"
		}`))
	}))
	defer srv.Close()

	loc, err := New(srv.URL, srv.Client()).Lookup(context.Background(), "01001000")
	require.NoError(t, err)

	assert.Equal(t, "Praça da Sé", loc.Street)
	assert.Equal(t, "São Paulo", loc.City)
	assert.Equal(t, "São Paulo", loc.State)
}

func TestLookup_UnknownCEP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// ViaCEP reports unknown CEPs with 200 and an "erro" flag.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"erro": "true"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).Lookup(context.Background(), "99999999")
	require.ErrorIs(t, err, address.ErrInvalidCEP)
}

func TestLookup_MalformedCEP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).Lookup(context.Background(), "abc")
	require.ErrorIs(t, err, address.ErrInvalidCEP)
}

func TestLookup_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).Lookup(context.Background(), "01001000")
	require.Error(t, err)
	assert.NotErrorIs(t, err, address.ErrInvalidCEP)
}

func TestLookup_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, srv.Client()).Lookup(ctx, "01001000")
	require.Error(t, err)
}
