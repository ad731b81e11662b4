// pkg/apimount/load.go
package apimount

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

type manifest struct {
	Server struct {
		Name     string `toml:"name"`
		BasePath string `toml:"base_path"`
		Port     int    `toml:"port"`
	} `toml:"server"`
}

// LoadConfig reads server identity from a TOML manifest. Hooks are code, not
// config; the returned Config carries only name/base_path/port.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var m manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return Config{}, err
	}
	return Config{
		Name:     m.Server.Name,
		BasePath: m.Server.BasePath,
		Port:     m.Server.Port,
	}, nil
}
