package editor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
)

// ExportResult describes a finished export.
type ExportResult struct {
	Path   string               `json:"path"`
	Bytes  int                  `json:"bytes"`
	Source domain.AudioResource `json:"source"`
}

// Export downloads the current audio to dest. When dest is an existing
// directory the file is named after the project and format. The file is
// written to a temporary name and renamed into place.
func (s *Session) Export(ctx context.Context, dest string) (ExportResult, error) {
	if strings.TrimSpace(dest) == "" {
		return ExportResult{}, errors.ValidationWithDetails("export path is required", map[string]string{"path": "is required"})
	}
	if s.deps.Fetcher == nil {
		return ExportResult{}, errors.Unavailable("export is not configured")
	}

	res, err := call(ctx, s, func() (domain.AudioResource, error) {
		return s.clock.Resource(), nil
	})
	if err != nil {
		return ExportResult{}, err
	}
	if res.IsZero() {
		return ExportResult{}, errors.Conflict("no audio resource is loaded")
	}

	target, err := s.exportPath(dest, res)
	if err != nil {
		return ExportResult{}, err
	}

	data, err := s.deps.Fetcher.Fetch(ctx, res.URL)
	if err != nil {
		if errors.IsCanceled(err) {
			return ExportResult{}, errors.Wrap(err, errors.CodeCanceled, "export canceled")
		}
		return ExportResult{}, errors.Wrap(err, errors.CodeUpstream, "failed to download audio")
	}

	if err := writeFileAtomic(target, data); err != nil {
		return ExportResult{}, errors.Wrap(err, errors.CodeInternal, "failed to write export")
	}

	s.logger.Info("audio exported", "path", target, "bytes", len(data), "url", res.URL)
	return ExportResult{Path: target, Bytes: len(data), Source: res}, nil
}

func (s *Session) exportPath(dest string, res domain.AudioResource) (string, error) {
	target, err := filepath.Abs(dest)
	if err != nil {
		return "", errors.Validationf("invalid export path %q", dest)
	}

	info, err := os.Stat(target)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(target, s.exportName(res)), nil
	case err == nil:
		return target, nil
	case !os.IsNotExist(err):
		return "", errors.Wrap(err, errors.CodeInternal, "failed to inspect export path")
	}

	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		return "", errors.ValidationWithDetails("export directory does not exist",
			map[string]string{"path": "parent directory must exist"})
	}
	return target, nil
}

func (s *Session) exportName(res domain.AudioResource) string {
	base := strings.TrimSpace(s.project.Name)
	if base == "" {
		u := res.URL
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		base = strings.TrimSuffix(path.Base(u), path.Ext(u))
	}
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "export"
	}
	if res.Format == "" {
		return base
	}
	return fmt.Sprintf("%s.%s", base, res.Format)
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
