// Package viacep implements the remote postal code directory backed by the
// public ViaCEP service.
package viacep

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/quitanda/backend/internal/domain/address"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

var _ address.Directory = (*Client)(nil)

// Client resolves CEPs through the ViaCEP HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. An empty baseURL selects the public service; the
// http client may be nil to use http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Lookup resolves a CEP. ViaCEP answers malformed CEPs with a 400 and
// unknown ones with a 200 body carrying an "erro" flag; both map to
// address.ErrInvalidCEP.
func (c *Client) Lookup(ctx context.Context, cep string) (*address.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ws/"+cep+"/json/", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call viacep")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, address.ErrInvalidCEP
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("viacep: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	return parseLocation(body)
}

// parseLocation decodes a ViaCEP response body. The service reports unknown
// CEPs with an "erro" member instead of an HTTP error.
func parseLocation(body []byte) (*address.Location, error) {
	var (
		loc      address.Location
		notFound bool
	)

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "erro":
			notFound = true
			return d.Skip()
		case "logradouro":
			s, err := d.Str()
			loc.Street = s
			return err
		case "localidade":
			s, err := d.Str()
			loc.City = s
			return err
		case "estado":
			s, err := d.Str()
			loc.State = s
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	if notFound {
		return nil, address.ErrInvalidCEP
	}
	return &loc, nil
}
