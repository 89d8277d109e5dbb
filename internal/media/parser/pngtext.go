package parser

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// isPNG checks the PNG header, mirroring the original importer's is_png
// gate (backend/src/import/mod.rs).
func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngMagic)
}

// pngTextChunks reads tEXt/iTXt ancillary chunks into a keyword->text map.
// No third-party PNG library appears anywhere in the example pack (none of
// them touch image formats at all), and this only needs to walk chunk
// headers and decompress the rare compressed iTXt body, so it is
// implemented directly against encoding/binary + compress/zlib rather than
// pulling in an unrelated dependency for one narrow parsing task.
func pngTextChunks(data []byte) map[string]string {
	out := make(map[string]string)
	if !isPNG(data) {
		return out
	}

	pos := len(pngMagic)
	for pos+8 <= len(data) {
		length := binary.BigEndian.Uint32(data[pos : pos+4])
		typ := string(data[pos+4 : pos+8])
		bodyStart := pos + 8
		bodyEnd := bodyStart + int(length)
		if bodyEnd > len(data) {
			break
		}
		body := data[bodyStart:bodyEnd]

		switch typ {
		case "tEXt":
			if i := bytes.IndexByte(body, 0); i >= 0 {
				out[string(body[:i])] = string(body[i+1:])
			}
		case "iTXt":
			if k, v, ok := parseITXt(body); ok {
				out[k] = v
			}
		case "IEND":
			return out
		}

		pos = bodyEnd + 4 // skip CRC
	}

	return out
}

func parseITXt(body []byte) (key, text string, ok bool) {
	parts := bytes.SplitN(body, []byte{0}, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	keyword := string(parts[0])
	rest := parts[1]
	if len(rest) < 2 {
		return "", "", false
	}
	compressed := rest[0] != 0
	// Skip compression flag, compression method, language tag (NUL
	// terminated), translated keyword (NUL terminated).
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return "", "", false
		}
		rest = rest[idx+1:]
	}

	if !compressed {
		return keyword, string(rest), true
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return "", "", false
	}
	defer zr.Close()
	decompressed, err := io.ReadAll(zr)
	if err != nil {
		return "", "", false
	}
	return keyword, string(decompressed), true
}
