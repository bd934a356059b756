package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/alpm"
	"github.com/git-pkgs/alpm/aur"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configName = "alpmq"

// Config is the contents of alpmq.toml.
type Config struct {
	Root   string `mapstructure:"root"`
	DBPath string `mapstructure:"dbpath"`
	Arch   string `mapstructure:"arch"`
	Repos  []Repo `mapstructure:"repo"`
	AUR    struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"aur"`
}

// Repo is a sync database to register. Servers may use $repo and $arch.
type Repo struct {
	Name     string   `mapstructure:"name"`
	Servers  []string `mapstructure:"servers"`
	SigLevel string   `mapstructure:"siglevel"`
}

// loadConfig reads path, or alpmq.toml from the user config directory when
// path is empty, and applies flags set on the command line over it.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("root", "/")
	v.SetDefault("dbpath", "/var/lib/pacman")
	v.SetDefault("arch", "x86_64")
	v.SetDefault("aur.url", aur.DefaultURL)

	for _, name := range []string{"root", "dbpath", "arch"} {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return nil, err
			}
		}
	}

	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(dir, configName, configName+".toml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	for _, r := range cfg.Repos {
		if r.Name == "" {
			return nil, errors.New("config: repo without a name")
		}
		if _, err := parseSigLevel(r.SigLevel); err != nil {
			return nil, fmt.Errorf("config: repo %s: %w", r.Name, err)
		}
	}
	return &cfg, nil
}

// parseSigLevel accepts the trust levels pacman.conf offers for a whole
// repository.
func parseSigLevel(s string) (alpm.SigLevel, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return alpm.SigUseDefault, nil
	case "never":
		return 0, nil
	case "optional":
		return alpm.SigPackage | alpm.SigPackageOptional | alpm.SigDatabase | alpm.SigDatabaseOptional, nil
	case "required":
		return alpm.SigPackage | alpm.SigDatabase, nil
	}
	return 0, fmt.Errorf("unknown siglevel %q", s)
}
