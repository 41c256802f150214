package artwork

import (
	"bytes"
)

// signature is a magic-byte prefix at a fixed offset.
type signature struct {
	offset int
	magic  []byte
	mime   string
}

var imageSignatures = []signature{
	{0, []byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{0, []byte("GIF8"), "image/gif"},
	{8, []byte("WEBP"), "image/webp"},
}

// DetectMimeType sniffs the image type of a downloaded file. Cached files
// always carry a .jpg name, so the content is the only reliable source.
func DetectMimeType(data []byte) string {
	for _, sig := range imageSignatures {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			if sig.mime == "image/webp" && !bytes.HasPrefix(data, []byte("RIFF")) {
				continue
			}
			return sig.mime
		}
	}
	return "application/octet-stream"
}
