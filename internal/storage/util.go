package storage

import (
	"io"
	"os"

	"github.com/nikvoid/nndb-core/pkg/slug"
)

// moveOrCopy moves src to dst, or copies it (leaving src in place) when
// testingMode is set — spec.md §6: "admitted files are moved there (or
// copied in testing mode)".
func moveOrCopy(src, dst string, testingMode bool) error {
	if !testingMode {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		// os.Rename fails across filesystems/devices; fall back to copy+remove.
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	if !testingMode {
		return os.Remove(src)
	}
	return nil
}

// removeQuiet deletes a duplicate incoming file, swallowing the error since
// a leftover temp file is not worth failing the whole admission batch over.
func removeQuiet(path string) error {
	return os.Remove(path)
}

// normalizeTagName canonicalizes a tag name the way every insertion path
// must before touching core.tag, so that e.g. "Solo Leveling" and
// "solo_leveling" collide on the same row (spec.md §4.1 add_tags).
func normalizeTagName(name string) string {
	return slug.Tag(name)
}
