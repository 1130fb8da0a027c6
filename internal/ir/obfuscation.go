// Filename: ir/obfuscation.go
// Obfuscated or binary-compiled input is detected and explicitly excluded
// rather than analyzed: the resulting IR would be meaningless and the taint
// pass would report silence instead of coverage loss.
package ir

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var binaryExtensions = map[string]bool{
	".so": true, ".pyd": true, ".dll": true, ".dylib": true, ".pyc": true,
}

const (
	minSourceLen          = 200
	longLineLen           = 300
	longLineRatio         = 0.2
	avgLineLen            = 120
	nonPrintableRatio     = 0.02
	symbolRatio           = 0.45
	longIdentifierLen     = 30
	longIdentifierMin     = 10
	longIdentifierRatio   = 0.25
	entropyThreshold      = 4.8
	entropySampleLen      = 2000
	obfuscationMinSignals = 2
)

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// IsBinaryPath reports whether the file extension marks compiled input.
func IsBinaryPath(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// DetectObfuscation applies a set of cheap heuristics (line shape, symbol
// density, identifier length, entropy) and flags the source when at least two
// signals fire. A null byte alone is conclusive.
func DetectObfuscation(source string) (bool, []string) {
	if source == "" {
		return false, nil
	}
	if strings.ContainsRune(source, 0) {
		return true, []string{"null_byte"}
	}
	if len(source) < minSourceLen {
		return false, nil
	}

	var reasons []string
	total := len(source)

	nonPrintable := 0
	symbolChars := 0
	for _, ch := range source {
		if !isPrintable(ch) {
			nonPrintable++
		}
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && !unicode.IsSpace(ch) && ch != '_' {
			symbolChars++
		}
	}
	if float64(nonPrintable)/float64(total) > nonPrintableRatio {
		reasons = append(reasons, "non_printable_ratio")
	}
	if float64(symbolChars)/float64(total) > symbolRatio {
		reasons = append(reasons, "symbol_density")
	}

	lines := strings.Split(source, "\n")
	longLines := 0
	lineLenSum := 0
	for _, line := range lines {
		lineLenSum += len(line)
		if len(line) >= longLineLen {
			longLines++
		}
	}
	avg := float64(lineLenSum) / float64(len(lines))
	if float64(longLines)/float64(len(lines)) > longLineRatio && avg > avgLineLen {
		reasons = append(reasons, "long_lines")
	}

	identifiers := identifierRe.FindAllString(source, -1)
	longIdents := 0
	for _, name := range identifiers {
		if len(name) >= longIdentifierLen {
			longIdents++
		}
	}
	if len(identifiers) > 0 && longIdents >= longIdentifierMin &&
		float64(longIdents)/float64(len(identifiers)) > longIdentifierRatio {
		reasons = append(reasons, "long_identifiers")
	}

	sample := source
	if len(sample) > entropySampleLen {
		sample = sample[:entropySampleLen]
	}
	if shannonEntropy(sample) > entropyThreshold {
		reasons = append(reasons, "high_entropy")
	}

	return len(reasons) >= obfuscationMinSignals, reasons
}

func isPrintable(ch rune) bool {
	return unicode.IsPrint(ch) || ch == '\n' || ch == '\r' || ch == '\t'
}

func shannonEntropy(data string) float64 {
	if data == "" {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, ch := range data {
		freq[ch]++
		total++
	}
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
