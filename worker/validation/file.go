package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypePNG  FileType = "image/png"
	FileTypeJPEG FileType = "image/jpeg"
	FileTypeGIF  FileType = "image/gif"
	FileTypeWebP FileType = "image/webp"
	FileTypeBMP  FileType = "image/bmp"
	FileTypeTIFF FileType = "image/tiff"
	FileTypePDF  FileType = "application/pdf"
)

const sniffLen = 512

type signature struct {
	offset int
	magic  []byte
}

// Order matters only for overlapping prefixes, so keep it fixed.
var magicBytes = []struct {
	fileType FileType
	sigs     []signature
}{
	{FileTypePNG, []signature{{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}}},
	{FileTypeJPEG, []signature{{0, []byte{0xFF, 0xD8, 0xFF}}}},
	{FileTypeGIF, []signature{{0, []byte("GIF87a")}, {0, []byte("GIF89a")}}},
	{FileTypeWebP, []signature{{0, []byte("RIFF")}, {8, []byte("WEBP")}}},
	{FileTypeBMP, []signature{{0, []byte("BM")}}},
	{FileTypeTIFF, []signature{{0, []byte{0x49, 0x49, 0x2A, 0x00}}}},
	{FileTypeTIFF, []signature{{0, []byte{0x4D, 0x4D, 0x00, 0x2A}}}},
	{FileTypePDF, []signature{{0, []byte{0x25, 0x50, 0x44, 0x46}}}},
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// DetectFileType classifies the file at path by its leading bytes. The file
// name plays no part in the result.
func DetectFileType(path string) (FileType, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	defer f.Close()

	return DetectReader(f)
}

func DetectReader(r io.Reader) (FileType, error) {
	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	head := buffer[:n]

	for _, candidate := range magicBytes {
		if matchAll(head, candidate.sigs) {
			return candidate.fileType, nil
		}
	}

	return "", ErrUnknownType
}

func matchAll(head []byte, sigs []signature) bool {
	for _, s := range sigs {
		if len(head) < s.offset+len(s.magic) {
			return false
		}
		if !bytes.Equal(head[s.offset:s.offset+len(s.magic)], s.magic) {
			return false
		}
	}
	return true
}

// IsAllowedImageType reports whether the sniffed type can be resized.
func IsAllowedImageType(fileType FileType) bool {
	switch fileType {
	case FileTypePNG, FileTypeJPEG, FileTypeGIF, FileTypeWebP:
		return true
	default:
		return false
	}
}

// HasAllowedExtension is the cheap pre-filter applied before sniffing.
func HasAllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Sniff combines detection and the allow-list. Unknown and disallowed types
// are both reported as ErrUnsupportedFormat.
func Sniff(path string) (FileType, error) {
	fileType, err := DetectFileType(path)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			return "", fmt.Errorf("%w: %s (type could not be determined)", ErrUnsupportedFormat, path)
		}
		return "", err
	}

	if !IsAllowedImageType(fileType) {
		return fileType, fmt.Errorf("%w: %s (detected as %s)", ErrUnsupportedFormat, path, fileType)
	}

	return fileType, nil
}
