package results

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

var gzipMagic = []byte{0x1f, 0x8b}

// LoadCalls decodes a result JSON file into its per-region call
// metadata. Missing, truncated or otherwise undecodable files yield a
// nil map after a logged warning; downstream rendering treats that the
// same as a file with no calls.
func LoadCalls(path string, logger *zap.Logger) map[string]map[string]any {
	raw := unpackJSON(path, logger)
	if raw == nil {
		return nil
	}
	calls := make(map[string]map[string]any, len(raw))
	for region, v := range raw {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		calls[region] = fields
	}
	return calls
}

// unpackJSON reads a JSON object from path, transparently inflating
// gzip when the name says so. All failure modes degrade to nil.
func unpackJSON(path string, logger *zap.Logger) map[string]any {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("cannot open JSON file", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		if !hasGzipMagic(f) {
			logger.Warn("file named .gz is not gzip compressed", zap.String("path", path))
			return nil
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			logger.Warn("cannot inflate JSON file", zap.String("path", path), zap.Error(err))
			return nil
		}
		defer gz.Close()
		r = gz
	}

	var decoded map[string]any
	if err := json.NewDecoder(r).Decode(&decoded); err != nil {
		logger.Warn("cannot decode JSON file", zap.String("path", path), zap.Error(err))
		return nil
	}
	return decoded
}

// hasGzipMagic checks the first two bytes of f and rewinds.
func hasGzipMagic(f *os.File) bool {
	head := make([]byte, 2)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return head[0] == gzipMagic[0] && head[1] == gzipMagic[1]
}
