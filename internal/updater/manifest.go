package updater

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/manifest.schema.json
var manifestSchemaBytes []byte

var (
	manifestSchema     *jsonschema.Schema
	manifestSchemaOnce sync.Once
	manifestSchemaErr  error
)

// Manifest is the canonical update descriptor. Remote payloads come in
// several shapes (object, bare scalar, array); normalizeManifest folds them
// all into this form so the rest of the engine never sees raw JSON.
type Manifest struct {
	Version     string `json:"version"`
	Changelog   string `json:"changelog,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	PageURL     string `json:"html_url,omitempty"`
	Checksum    string `json:"sha256,omitempty"`
}

// FetchManifest performs a single GET against the configured manifest URL and
// normalizes the response. It returns nil on any network error, non-2xx
// status, unparsable body, or a manifest without a version: an unreachable
// update server must never interrupt startup, so callers treat nil as "no
// update available".
func (u *Updater) FetchManifest(ctx context.Context) *Manifest {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.ManifestURL, nil)
	if err != nil {
		u.log.WithError(err).Debug("update check: building request")
		return nil
	}
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		u.log.WithError(err).Debug("update check: fetch failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		u.log.WithField("status", resp.StatusCode).Debug("update check: non-2xx response")
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		u.log.WithError(err).Debug("update check: body is not JSON")
		return nil
	}

	m := normalizeManifest(raw)
	if m == nil {
		u.log.Debug("update check: payload did not normalize to a manifest")
		return nil
	}
	if err := validateManifest(m); err != nil {
		u.log.WithError(err).Debug("update check: manifest failed schema validation")
		return nil
	}
	return m
}

// normalizeManifest folds the recognized payload shapes into a Manifest:
// object with alias keys, bare scalar (wrapped as the version), or array
// whose first element is normalized recursively. Anything else, or an object
// without a resolvable version, yields nil.
func normalizeManifest(raw interface{}) *Manifest {
	switch v := raw.(type) {
	case map[string]interface{}:
		m := &Manifest{
			Version:     stringAlias(v, "version", "ver", "v", "release"),
			Changelog:   stringAlias(v, "changelog", "notes"),
			DownloadURL: stringAlias(v, "download_url", "url", "html_url"),
			PageURL:     stringAlias(v, "html_url", "page_url"),
			Checksum:    stringAlias(v, "sha256", "checksum"),
		}
		if m.Version == "" {
			return nil
		}
		return m
	case string:
		if v == "" {
			return nil
		}
		return &Manifest{Version: v}
	case json.Number:
		return &Manifest{Version: v.String()}
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		return normalizeManifest(v[0])
	default:
		return nil
	}
}

// stringAlias returns the first alias key present with a scalar value.
func stringAlias(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch val := obj[k].(type) {
		case string:
			if val != "" {
				return val
			}
		case json.Number:
			return val.String()
		}
	}
	return ""
}

func getManifestSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaBytes))
		if err != nil {
			manifestSchemaErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			manifestSchemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = c.Compile("manifest.schema.json")
	})
	return manifestSchema, manifestSchemaErr
}

// validateManifest checks the canonical manifest against the embedded JSON
// schema: version must be non-empty and a checksum, when present, must be
// 64 hex characters. A malformed manifest is downgraded to "no update".
func validateManifest(m *Manifest) error {
	schema, err := getManifestSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("preparing manifest for validation: %w", err)
	}
	return schema.Validate(inst)
}
