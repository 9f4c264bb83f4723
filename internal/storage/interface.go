package storage

import (
	"context"
	"io"
)

// ImageStore hosts rendered visa images and returns their public URL.
type ImageStore interface {
	// Upload stores data under folder/fileName, replacing any previous file with
	// the same name, and returns a URL that serves the new content.
	Upload(ctx context.Context, folder, fileName string, data []byte) (string, error)
}

// FileReader is implemented by stores that serve their files through this
// process.
type FileReader interface {
	ReadFile(key string) (io.ReadCloser, error)
}
