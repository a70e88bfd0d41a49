package file

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileOperations defines the filesystem probes and reads the agent needs.
// Injected so the log resolver and config loader can be tested without
// touching the real filesystem.
type FileOperations interface {
	IsFileExists(filePath string) (bool, error)
	IsDir(filePath string) (bool, error)
	IsDirWritable(dir string) bool
	ReadYamlFile(filePath string, v any) error
}

// FileService implements FileOperations using standard file operations.
type FileService struct{}

// NewFileService creates a new instance of FileService.
func NewFileService() *FileService {
	return &FileService{}
}

// IsFileExists checks if the file exists and returns boolean and error.
func (fs *FileService) IsFileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	// checking err == nil because of permission related error
	return err == nil, err
}

// IsDir reports whether the path exists and is a directory.
func (fs *FileService) IsDir(filePath string) (bool, error) {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// IsDirWritable probes dir by creating and removing a throwaway file. Stat
// alone is not enough: mode bits lie on network mounts and read-only
// remounts.
func (fs *FileService) IsDirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".pushmon-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// ReadYamlFile reads and unmarshals YAML data from the given file.
func (fs *FileService) ReadYamlFile(filePath string, v any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
