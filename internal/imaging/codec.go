// Package imaging converts between local files, transport-safe base64
// payloads, and browser-displayable data URIs.
package imaging

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// DefaultMIMEType is assumed when the caller gives no MIME hint
const DefaultMIMEType = "image/jpeg"

// EncodeFile reads a local image file and returns its standard base64
// encoding with no data-URI prefix, the form the model API expects.
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Encode returns the standard base64 encoding of raw image bytes
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode returns the raw bytes of a base64 payload
func Decode(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}

	return data, nil
}

// DataURI prefixes an encoded payload with a data-URI scheme so it can be
// rendered directly in an <img> tag.
func DataURI(encoded, mimeHint string) string {
	if mimeHint == "" {
		mimeHint = DefaultMIMEType
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeHint, encoded)
}

// StripDataURI removes a data-URI prefix if present. Clients are expected to
// send raw base64, but payloads copied straight from a FileReader result
// arrive with the prefix attached.
func StripDataURI(payload string) string {
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}

	if idx := strings.Index(payload, ","); idx >= 0 {
		return payload[idx+1:]
	}

	return payload
}
