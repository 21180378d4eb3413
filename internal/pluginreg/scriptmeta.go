package pluginreg

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
)

// Sentinels delimiting a scripted plugin's inline metadata block. A
// scripted file declares its capabilities as a JSON object between these
// two marker lines, commented out in whatever syntax its interpreter
// uses. Only the sentinel text matters; the file is never executed.
const (
	metaBeginSentinel = "jn:meta:begin"
	metaEndSentinel   = "jn:meta:end"
)

// classifyScripted reads path looking for a jn:meta:begin/jn:meta:end
// block and parses the JSON object between them, without executing the
// file.
func classifyScripted(path string, tier Tier, modTime int64) (*PluginRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, jnerr.NewDiscoveryError(path, "failed to open candidate", false, err)
	}
	defer f.Close()

	block, found, err := scanMetaBlock(f)
	if err != nil {
		return nil, jnerr.NewDiscoveryError(path, "malformed inline metadata block", false, err)
	}
	if !found {
		return nil, nil // not a plugin at all; silently skip, not an error
	}

	var m meta
	if err := json.Unmarshal(block, &m); err != nil {
		return nil, jnerr.NewDiscoveryError(path, "invalid inline metadata JSON", false, err)
	}
	if err := m.validate(); err != nil {
		return nil, jnerr.NewDiscoveryError(path, "inline metadata "+err.Error(), false, nil)
	}
	return m.toRecord(path, KindScripted, tier, modTime), nil
}

// scanMetaBlock extracts the text between the first jn:meta:begin and
// jn:meta:end sentinel lines, stripping a single leading comment-marker
// column (e.g. "# ", "// ", "-- ") from each line so the block can be
// embedded in any scripting language's comment syntax.
func scanMetaBlock(r *os.File) (block []byte, found bool, err error) {
	scanner := bufio.NewScanner(r)
	var sb bytes.Buffer
	inBlock := false
	for scanner.Scan() {
		line := scanner.Text()
		if !inBlock {
			if strings.Contains(line, metaBeginSentinel) {
				inBlock = true
			}
			continue
		}
		if strings.Contains(line, metaEndSentinel) {
			return sb.Bytes(), true, scanner.Err()
		}
		sb.WriteString(stripCommentPrefix(line))
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}
	if inBlock {
		return nil, false, jnerr.NewDiscoveryError("", "unterminated metadata block", false, nil)
	}
	return nil, false, nil
}

// stripCommentPrefix removes one leading "#", "//", or "--" comment marker
// (plus following whitespace) from line, so the embedded JSON survives
// regardless of host-language comment syntax.
func stripCommentPrefix(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	prefixLen := len(line) - len(trimmed)
	for _, marker := range []string{"//", "--", "#"} {
		if strings.HasPrefix(trimmed, marker) {
			rest := strings.TrimPrefix(trimmed, marker)
			return line[:prefixLen] + strings.TrimLeft(rest, " \t")
		}
	}
	return line
}
