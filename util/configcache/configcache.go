/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package configcache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger/fabric-sdk-go/pkg/util/concurrent/lazycache"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/spf13/viper"
)

// Cache manages a cache of Vipers keyed by config location
type Cache struct {
	cache       *lazycache.Cache
	envPrefix   string
	defaultPath string
}

// New returns a new config cache. Each location is either a directory
// containing <name>.yaml or the path of a config file.
func New(name, envPrefix, defaultPath string) *Cache {
	return &Cache{
		envPrefix:   envPrefix,
		defaultPath: defaultPath,
		cache: lazycache.New("Gateway_Config_Cache", func(key lazycache.Key) (interface{}, error) {
			return newConfig(key.String(), name, envPrefix)
		}),
	}
}

// Get returns the config for the given location. An empty location resolves
// to $<PREFIX>_CFG_PATH if set, and to the default path otherwise.
func (c *Cache) Get(path string) (*viper.Viper, error) {
	if path == "" {
		path = os.Getenv(strings.ToUpper(c.envPrefix) + "_CFG_PATH")
	}
	if path == "" {
		path = c.defaultPath
	}
	config, err := c.cache.Get(lazycache.NewStringKey(path))
	if err != nil {
		return nil, err
	}
	return config.(*viper.Viper), nil
}

// Close releases the cached entries
func (c *Cache) Close() {
	c.cache.Close()
}

func newConfig(path, name, envPrefix string) (*viper.Viper, error) {
	replacer := strings.NewReplacer(".", "_")
	config := viper.New()
	if isConfigFile(path) {
		config.SetConfigFile(path)
	} else {
		config.AddConfigPath(path)
		config.SetConfigName(name)
	}
	config.SetEnvPrefix(envPrefix)
	config.AutomaticEnv()
	config.SetEnvKeyReplacer(replacer)
	err := config.ReadInConfig()
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigError, err, "Error reading config file [%s]", path)
	}
	return config, nil
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}
