// Filename: ir/obfuscation_test.go
package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullByteAloneIsConclusive(t *testing.T) {
	flagged, reasons := DetectObfuscation("x = \"pay\x00load\"")
	require.True(t, flagged)
	require.Equal(t, []string{"null_byte"}, reasons)
}

func TestOrdinaryCodeNotFlagged(t *testing.T) {
	src := strings.Repeat("def handler(request):\n    value = request.args.get(\"id\")\n    return value\n\n", 10)
	flagged, reasons := DetectObfuscation(src)
	require.False(t, flagged, "reasons: %v", reasons)
}

func TestShortInputNeverFlagged(t *testing.T) {
	flagged, _ := DetectObfuscation("x=(((~1)))*2#$%^&*")
	require.False(t, flagged)
}

func TestPackedPayloadTripsMultipleSignals(t *testing.T) {
	// One very long line of base64-ish noise: long_lines plus high_entropy
	// and symbol density all fire together.
	payload := "exec(__import__('base64').b64decode('"
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	for i := 0; i < 40; i++ {
		payload += alphabet
	}
	payload += "'))"
	flagged, reasons := DetectObfuscation(payload)
	require.True(t, flagged)
	require.GreaterOrEqual(t, len(reasons), 2)
}

func TestBinaryPathByExtension(t *testing.T) {
	require.True(t, IsBinaryPath("pkg/module.pyc"))
	require.True(t, IsBinaryPath("native/ext.SO"))
	require.False(t, IsBinaryPath("app.py"))
	require.False(t, IsBinaryPath("README.md"))
}

func TestEmptySourceNotFlagged(t *testing.T) {
	flagged, reasons := DetectObfuscation("")
	require.False(t, flagged)
	require.Nil(t, reasons)
}
