// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package logger

// Configuration is the configuration for the logger. Level and console
// output are global and set from the command line.
type Configuration struct {
	// File is an optional file to write logs to (as JSON) instead
	// of the standard output. It is rotated when it gets too big.
	File FileConfiguration
}

// FileConfiguration describes the log file and its rotation.
type FileConfiguration struct {
	// Path is the path of the log file. Empty means no log file.
	Path string
	// MaxSize is the size in megabytes before rotating the file.
	MaxSize int `validate:"min=1"`
	// MaxBackups is the number of rotated files to keep (0 keeps all of them).
	MaxBackups int `validate:"min=0"`
	// MaxAge is the number of days to keep rotated files (0 keeps all of them).
	MaxAge int `validate:"min=0"`
	// Compress tells if rotated files should be compressed.
	Compress bool
}

// DefaultConfiguration is the default logging configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		File: FileConfiguration{
			MaxSize:    100,
			MaxBackups: 5,
		},
	}
}
