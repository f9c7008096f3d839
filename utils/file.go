package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// Allowed upload extensions.
var (
	IconExtensions  = []string{".jpg", ".jpeg", ".png", ".gif"}
	ProofExtensions = []string{".jpg", ".jpeg", ".png"}
	PostExtensions  = []string{".jpg", ".jpeg", ".png", ".gif"}
)

// ObjectKey builds a random object key under prefix that keeps the file's
// extension, after checking the extension against allowed.
func ObjectKey(prefix string, fileHeader *multipart.FileHeader, allowed []string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, a := range allowed {
		if ext == a {
			return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.NewString(), ext), nil
		}
	}
	return "", fmt.Errorf("%q: %w", fileHeader.Filename, ErrUnsupportedFileType)
}

// LocalStorage saves uploads under a directory served at BaseURL. Used when
// R2 is not configured.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Upload(_ context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	if err := SaveFile(fileHeader, filepath.Join(s.Dir, filepath.FromSlash(key))); err != nil {
		return "", err
	}
	return s.BaseURL + "/" + key, nil
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}
