package site

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/klauspost/compress/gzip"
)

// ExportResult describes one written page.
type ExportResult struct {
	Page       string `json:"page"`
	Path       string `json:"path"`
	Size       int    `json:"size"`
	Compressed int    `json:"compressed,omitempty"`
}

// Export renders every page into dir. With compress set, a gzipped copy is
// written next to each page. Pages are stamped with the latest release tag
// when it can be fetched.
func (s *Server) Export(ctx context.Context, dir string, compress bool) ([]ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	version, err := s.client.LatestTag(ctx, s.opts.Owner, s.opts.Repo)
	if err != nil {
		log.WithError(err).Warn("exporting without version tag")
		version = ""
	}

	var results []ExportResult
	for _, p := range pages {
		var buf bytes.Buffer
		if err := s.render(ctx, &buf, p, version, nil); err != nil {
			return results, err
		}

		res := ExportResult{Page: p.Name, Path: filepath.Join(dir, p.Name), Size: buf.Len()}
		if err := os.WriteFile(res.Path, buf.Bytes(), 0o644); err != nil {
			return results, fmt.Errorf("writing %s: %w", res.Path, err)
		}

		if compress {
			n, err := writeGzip(res.Path+".gz", buf.Bytes())
			if err != nil {
				return results, err
			}
			res.Compressed = n
			log.WithFields(log.Fields{
				"page":  p.Name,
				"ratio": fmt.Sprintf("%d%%", n*100/max(res.Size, 1)),
			}).Debug("compressed")
		}
		results = append(results, res)
	}
	return results, nil
}

func writeGzip(path string, data []byte) (int, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(data); err != nil {
		return 0, fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("compressing %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return buf.Len(), nil
}
