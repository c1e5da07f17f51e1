// ABOUTME: Standard filesystem paths for gitstaller state
// ABOUTME: Resolves $GITSTALLER_HOME or ~/.gitstaller/ and the files beneath it

package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvHome overrides the base directory.
	EnvHome = "GITSTALLER_HOME"

	baseDirName      = ".gitstaller"
	packagesDirName  = "packages"
	metadataFileName = "installed.json"
	configFileName   = "config.yaml"
)

// BaseDir returns the state directory: $GITSTALLER_HOME when set, else ~/.gitstaller/.
func BaseDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", baseDirName)
	}
	return filepath.Join(home, baseDirName)
}

// PackagesDir returns the directory holding one workspace per package.
func PackagesDir(base string) string {
	return filepath.Join(base, packagesDirName)
}

// MetadataFile returns the path of the metadata store.
func MetadataFile(base string) string {
	return filepath.Join(base, metadataFileName)
}

// ConfigFile returns the path of the optional settings file.
func ConfigFile(base string) string {
	return filepath.Join(base, configFileName)
}

// EnsureDir creates a directory and all parents if they don't exist. New
// directories are private to the user.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o700)
}
