// utils/file.go
package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// MaxCoverSize caps cover uploads (5MB — covers are small public assets).
const MaxCoverSize = 5 * 1024 * 1024

var allowedCoverExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidateCoverUpload rejects files that are not plausible cover images.
func ValidateCoverUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxCoverSize {
		return fmt.Errorf("cover too large (max %d bytes)", MaxCoverSize)
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedCoverExts[ext] {
		return fmt.Errorf("unsupported cover format %q (jpg/png/webp only)", ext)
	}
	return nil
}
