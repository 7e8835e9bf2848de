// Package naming turns user naming patterns into concrete, collision-free
// output paths.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// Context supplies the token values for one work item.
type Context struct {
	Name       string // source filename without extension
	Ext        string // target extension, no dot
	Index      int    // 1-based position within the whole batch
	IndexWidth int    // zero-pad width, fixed from the planned batch size
	Page       int    // 1-based page number; 0 when not applicable
	Mode       string // stable short mode code
}

var tokenRe = regexp.MustCompile(`\{[a-zA-Z]+\}`)

// reserved characters for common target filesystems
const reservedChars = `\/:*?"<>|`

// Resolve expands pattern into an output filename (extension included).
// Unknown tokens stay verbatim and are returned as warnings; the batch still
// proceeds with the literal token in the name. The result is sanitized for
// the target filesystem, and an empty expansion falls back to {name}.
func Resolve(pattern string, ctx Context) (string, []string) {
	replacer := strings.NewReplacer(
		"{name}", ctx.Name,
		"{ext}", ctx.Ext,
		"{index}", fmt.Sprintf("%0*d", ctx.IndexWidth, ctx.Index),
		"{page}", pageToken(ctx.Page),
		"{mode}", ctx.Mode,
	)
	out := replacer.Replace(pattern)

	var warnings []string
	for _, tok := range tokenRe.FindAllString(out, -1) {
		warnings = append(warnings, fmt.Sprintf("unknown naming token %s left as-is", tok))
	}

	out = sanitize(out)
	if out == "" {
		out = sanitize(ctx.Name)
	}

	suffix := "." + ctx.Ext
	if !strings.HasSuffix(strings.ToLower(out), suffix) {
		out += suffix
	}
	return out, warnings
}

func pageToken(page int) string {
	if page <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", page)
}

// sanitize replaces filesystem-reserved characters with underscores, then
// collapses the doubled separators empty tokens leave behind.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(reservedChars, r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, " _-.")
}

// IndexWidth returns the zero-pad width for {index}, computed once from the
// final planned batch size so names stay deterministic regardless of
// execution order.
func IndexWidth(batchSize int) int {
	if batchSize < 1 {
		return 1
	}
	return len(fmt.Sprintf("%d", batchSize))
}
