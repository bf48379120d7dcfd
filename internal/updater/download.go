package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// DownloadArtifact retrieves the update payload into a freshly created
// scratch file and returns its path. The file's suffix is inferred from the
// URL extension so the applier can classify it; the caller owns the file and
// is responsible for removing it.
func (u *Updater) DownloadArtifact(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", u.userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading download stream: %w", err)
	}

	f, err := os.CreateTemp("", "otc-update-*"+scratchSuffix(rawURL))
	if err != nil {
		return "", fmt.Errorf("creating scratch file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing scratch file: %w", err)
	}

	u.log.WithField("path", f.Name()).Debug("downloaded update artifact")
	return f.Name(), nil
}

// scratchSuffix maps the URL's extension to a scratch-file suffix so the
// artifact keeps its identity on disk. Unknown extensions get no suffix.
func scratchSuffix(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".zip":
		return ".zip"
	case ".exe":
		return ".exe"
	case ".py":
		return ".py"
	}
	return ""
}
