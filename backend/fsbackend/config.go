package fsbackend

import (
	"bytes"
	"path/filepath"

	"github.com/corevcs/mgit/internal/gitpath"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// setDefaultCfg sets and persists the default git configuration for
// a freshly initialized repository.
func (b *Backend) setDefaultCfg() error {
	cfg := ini.Empty()

	core, err := cfg.NewSection("core")
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		"repositoryformatversion": "0",
		"filemode":                "true",
		"bare":                    "false",
		"logallrefupdates":        "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set core.%s: %w", k, err)
		}
	}

	buf := new(bytes.Buffer)
	if _, err := cfg.WriteTo(buf); err != nil {
		return xerrors.Errorf("could not serialize default config: %w", err)
	}
	p := filepath.Join(b.root, gitpath.ConfigPath)
	if err := afero.WriteFile(b.fs, p, buf.Bytes(), 0o644); err != nil {
		return xerrors.Errorf("could not write %s: %w", p, err)
	}
	return nil
}
