package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotPDF = errors.New("only PDF files are accepted")

type StorageService interface {
	SaveFile(file *multipart.FileHeader, id uuid.UUID) (string, string, error)
	GetFilePath(filename string) string
	FilenameFor(id uuid.UUID) string
	Open(id uuid.UUID) (*os.File, error)
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveFile stores an uploaded CV as <id>.pdf. The extension and the file
// signature must both say PDF.
func (s *storageService) SaveFile(file *multipart.FileHeader, id uuid.UUID) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", "", fmt.Errorf("%w: extension %q", ErrNotPDF, ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if !LooksLikePDF(src) {
		return "", "", fmt.Errorf("%w: bad file signature", ErrNotPDF)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("failed to rewind uploaded file: %w", err)
	}

	filename := s.FilenameFor(id)
	filePath := s.GetFilePath(filename)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, filePath, nil
}

func (s *storageService) FilenameFor(id uuid.UUID) string {
	return id.String() + ".pdf"
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) Open(id uuid.UUID) (*os.File, error) {
	f, err := os.Open(s.GetFilePath(s.FilenameFor(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
