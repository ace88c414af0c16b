package upload

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// listSyntax would be split apart when a name is sent back in a list field.
	listSyntax = strings.NewReplacer(",", "_", "[", "_", "]", "_", `"`, "_")
)

// StoredName builds "<base>-<unix ms>-<n><ext>" from a client filename.
// Directory components are dropped; whitespace, commas, brackets and
// quotes become underscores.
func StoredName(original string, now time.Time, n int64) string {
	original = path.Base(strings.ReplaceAll(original, `\`, "/"))
	if original == "." || original == "/" {
		original = ""
	}
	ext := path.Ext(original)
	base := strings.TrimSuffix(original, ext)
	base = whitespace.ReplaceAllString(strings.TrimSpace(base), "_")
	base = listSyntax.Replace(base)
	ext = listSyntax.Replace(ext)
	base = strings.TrimLeft(base, ".")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%d-%d%s", base, now.UnixMilli(), n, ext)
}
