package llmutils

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/llmfacade/pkg/llms"
)

// DefaultImageMIMEType is used for unknown extensions.
const DefaultImageMIMEType = "image/jpeg"

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageMIMEType returns the MIME type by the file extension.
func ImageMIMEType(path string) string {
	if mt, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return DefaultImageMIMEType
}

// ValidateImagePaths checks that every path is an existing regular file.
// All missing paths are reported in one error marked llms.ErrImageNotFound.
func ValidateImagePaths(paths []string) ([]string, error) {
	var missing []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Mark(
			errors.Newf("The following image files were not found: %s", strings.Join(missing, ", ")),
			llms.ErrImageNotFound)
	}
	return paths, nil
}

// ReadImage returns the content of the image file.
func ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "Failed to encode image at %s", path),
			llms.ErrImageEncoding)
	}
	return data, nil
}

// EncodeImage returns the standard base64 encoding of the image file.
func EncodeImage(path string) (string, error) {
	data, err := ReadImage(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeImage returns the bytes of base64 encoded image.
func DecodeImage(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "Failed to decode image"), llms.ErrImageEncoding)
	}
	return data, nil
}
