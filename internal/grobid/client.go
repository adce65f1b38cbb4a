// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grobid is a client for the GROBID document-analysis service.
// The fulltext endpoint turns PDFs into TEI XML; the smaller endpoints
// parse single citation strings, author name lists, and affiliations.
package grobid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/meshintel/paperjson/internal/httputil"
	"github.com/meshintel/paperjson/pkg/types"
)

// Client talks to one GROBID server. Safe for concurrent use.
type Client struct {
	cfg     types.GrobidConfig
	baseURL string
	http    *http.Client
}

// New builds a client from config. An empty config field falls back to the
// default from types.DefaultGrobidConfig.
func New(cfg types.GrobidConfig) *Client {
	def := types.DefaultGrobidConfig()
	if cfg.Server == "" {
		cfg.Server = def.Server
	}
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SleepTime == 0 {
		cfg.SleepTime = def.SleepTime
	}
	if cfg.MaxBusyRetries == 0 {
		cfg.MaxBusyRetries = def.MaxBusyRetries
	}
	return &Client{
		cfg:     cfg,
		baseURL: fmt.Sprintf("http://%s:%s", cfg.Server, cfg.Port),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ProcessFulltext sends a PDF to the fulltext endpoint and returns the TEI
// XML document. Busy (503) responses are retried with a fixed delay up to
// the configured cap.
func (c *Client) ProcessFulltext(ctx context.Context, pdfName string, pdf []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input"; filename=%q`, pdfName))
	hdr.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	for field, on := range map[string]bool{
		"generateIDs":            c.cfg.GenerateIDs,
		"consolidateHeader":      c.cfg.ConsolidateHeader,
		"consolidateCitations":   c.cfg.ConsolidateCitations,
		"includeRawCitations":    c.cfg.IncludeRawCitations,
		"includeRawAffiliations": c.cfg.IncludeRawAffiliations,
	} {
		if err := mw.WriteField(field, boolFlag(on)); err != nil {
			return "", fmt.Errorf("building multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/processFulltextDocument", bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, "processFulltextDocument")
}

// ProcessCitation parses one raw citation string into a TEI biblStruct
// fragment.
func (c *Client) ProcessCitation(ctx context.Context, raw string) (string, error) {
	return c.postForm(ctx, "/api/processCitation", url.Values{
		"citations":            {raw},
		"consolidateCitations": {"0"},
	})
}

// ProcessHeaderNames parses an author name list from a document header into
// TEI persName elements.
func (c *Client) ProcessHeaderNames(ctx context.Context, names string) (string, error) {
	return c.postForm(ctx, "/api/processHeaderNames", url.Values{
		"names": {names},
	})
}

// ProcessAffiliations parses a raw affiliation string into a TEI
// affiliation element.
func (c *Client) ProcessAffiliations(ctx context.Context, aff string) (string, error) {
	return c.postForm(ctx, "/api/processAffiliations", url.Values{
		"affiliations": {aff},
	})
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, strings.TrimPrefix(path, "/api/"))
}

func (c *Client) do(req *http.Request, service string) (string, error) {
	req.Header.Set("Accept", "text/plain")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithBusyRetry(req.Context(), c.http, req, c.cfg.SleepTime, c.cfg.MaxBusyRetries)
	if err != nil {
		return "", fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: reading response: %w", service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: server returned status %d", service, resp.StatusCode)
	}
	return string(data), nil
}

func boolFlag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
