package config

import "fmt"

// MissingSettingError reports a required setting that was not configured.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("%s environment variable is not set", e.Setting)
}
