package export

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/olgasafonova/mediawiki-export/tracing"
)

const textExt = ".txt"

// wordPattern matches runs of letters, digits and underscores
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// CombineResult describes the combined corpus file
type CombineResult struct {
	Path  string
	Files int
	Words int
}

// CountWords returns the number of alphanumeric tokens in text
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// Combine concatenates every .txt file in dir, in name order and each followed by a
// newline, into dir/name, then re-reads the result and counts its words.
// An existing dir/name is overwritten and never included in its own output.
func Combine(ctx context.Context, dir, name string) (CombineResult, error) {
	_, span := tracing.StartSpan(ctx, "export.combine")
	defer span.End()

	result, err := combine(dir, name)
	if err != nil {
		tracing.RecordError(span, err)
	}
	return result, err
}

func combine(dir, name string) (CombineResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return CombineResult{}, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return CombineResult{}, fmt.Errorf("failed to create combined file: %w", err)
	}

	w := bufio.NewWriter(out)
	files := 0
	for _, entry := range entries {
		if entry.Name() == name || !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), textExt) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			_ = out.Close()
			return CombineResult{}, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if _, err := w.Write(data); err != nil {
			_ = out.Close()
			return CombineResult{}, fmt.Errorf("failed to write combined file: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = out.Close()
			return CombineResult{}, fmt.Errorf("failed to write combined file: %w", err)
		}
		files++
	}

	if err := w.Flush(); err != nil {
		_ = out.Close()
		return CombineResult{}, fmt.Errorf("failed to write combined file: %w", err)
	}
	if err := out.Close(); err != nil {
		return CombineResult{}, fmt.Errorf("failed to close combined file: %w", err)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return CombineResult{}, fmt.Errorf("failed to read combined file: %w", err)
	}

	return CombineResult{
		Path:  path,
		Files: files,
		Words: CountWords(string(text)),
	}, nil
}
