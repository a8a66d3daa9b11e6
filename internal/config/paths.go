package config

import "path/filepath"

const (
	// Layout under POLYCHAT_HOME.
	ConfigFileName     = "config.yaml"
	EnvFileName        = ".env"
	AttachmentsDirName = "attachments"
	ModelsDirName      = "models"
	HistoryFileName    = "chat_history"
)

func homeConfigPath(home string) string {
	return filepath.Join(home, ConfigFileName)
}

func defaultHomePath(home string) string {
	return filepath.Join(home, ".polychat")
}

// ConfigPath is the file the configuration was (or would be) read from.
func (c *Config) ConfigPath() string {
	if c.File != "" {
		return c.File
	}
	return homeConfigPath(c.HomeDir)
}

// AttachmentsDir is where attachment files named by id are stored.
func (c *Config) AttachmentsDir() string {
	if c.Attachments.Dir != "" {
		return c.Attachments.Dir
	}
	return filepath.Join(c.HomeDir, AttachmentsDirName)
}

// ModelsDir is the root folder for on-device models.
func (c *Config) ModelsDir() string {
	if c.Local.ModelsDir != "" {
		return c.Local.ModelsDir
	}
	return filepath.Join(c.HomeDir, ModelsDirName)
}

// HistoryPath is the interactive chat line history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.HomeDir, HistoryFileName)
}
