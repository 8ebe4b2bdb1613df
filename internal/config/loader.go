package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/calcfield/internal/hclform"
	"github.com/specialistvlad/calcfield/internal/yamlform"
)

// Extensions lists the file extensions a form or values file may have.
var Extensions = []string{".hcl", ".yaml", ".yml"}

// LoaderFor picks the loader for path by its extension. Directories are
// read as HCL.
func LoaderFor(path string) (Loader, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return hclform.NewLoader(), nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return hclform.NewLoader(), nil
	case ".yaml", ".yml":
		return yamlform.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q for %s", ext, path)
	}
}
