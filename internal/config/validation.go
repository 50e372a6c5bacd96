package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate validates the configuration. file is used in error messages only.
func Validate(cfg *Config, file string) error {
	if cfg.DataDir != "" {
		if filepath.IsAbs(cfg.DataDir) || hasTraversal(cfg.DataDir) {
			return NewConfigErrorWithField(ConfigValidationFailed, file, KeyDataDir,
				"data directory must be a relative path inside the theme")
		}
	}

	if cfg.Proxy.Address == "" {
		if cfg.Proxy.Port != 0 || cfg.Proxy.Username != "" || cfg.Proxy.Password != "" {
			return NewConfigErrorWithField(ConfigValidationFailed, file, KeyProxy+".address",
				"proxy address is required when other proxy settings are present")
		}
	} else {
		if strings.Contains(cfg.Proxy.Address, "/") {
			return NewConfigErrorWithField(ConfigValidationFailed, file, KeyProxy+".address",
				fmt.Sprintf("proxy address must be a host name, got %q", cfg.Proxy.Address))
		}
		if cfg.Proxy.Port < 0 || cfg.Proxy.Port > 65535 {
			return NewConfigErrorWithField(ConfigValidationFailed, file, KeyProxy+".port",
				fmt.Sprintf("proxy port out of range: %d", cfg.Proxy.Port))
		}
		if cfg.Proxy.Password != "" && cfg.Proxy.Username == "" {
			return NewConfigErrorWithField(ConfigValidationFailed, file, KeyProxy+".username",
				"proxy username is required when a password is set")
		}
	}

	for i, entry := range cfg.Include {
		if strings.TrimSpace(entry) == "" {
			return NewConfigErrorWithField(ConfigValidationFailed, file,
				fmt.Sprintf("%s[%d]", KeyInclude, i), "include entry cannot be empty")
		}
	}

	return nil
}

// hasTraversal reports whether a relative path climbs out of its base.
func hasTraversal(p string) bool {
	cleaned := filepath.ToSlash(filepath.Clean(p))
	return cleaned == ".." || strings.HasPrefix(cleaned, "../")
}
