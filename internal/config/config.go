package config

import (
	"os"

	"github.com/go-yaml/yaml"

	"github.com/skymirror/skymirror/internal/domain"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Atproto Atproto `yaml:"atproto"`
	Stream  Stream  `yaml:"stream"`
}

type Server struct {
	Listen         string `yaml:"listen"`
	DatabasePath   string `yaml:"databasePath"`
	LeadershipPath string `yaml:"leadershipPath"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisDB        int    `yaml:"redisDB"`
	MemcachedAddr  string `yaml:"memcachedAddr"`
	EnableTrace    bool   `yaml:"enableTrace"`
	TraceEndpoint  string `yaml:"traceEndpoint"`
}

type Atproto struct {
	PlcDirectory        string              `yaml:"plcDirectory"`
	Relay               string              `yaml:"relay"`
	Collections         []string            `yaml:"collections"`
	ExternalCollections []string            `yaml:"externalCollections"`
	CollectionKeys      map[string][]string `yaml:"collectionKeys"`
	CollectionRequired  map[string][]string `yaml:"collectionRequired"`
	NotificationsOnly   bool                `yaml:"notificationsOnly"`
	LabelerDID          string              `yaml:"labelerDid"`
}

type Stream struct {
	JetstreamURL         string `yaml:"jetstreamUrl"`
	MaxReconnectAttempts int    `yaml:"maxReconnectAttempts"`
	BackoffBaseSeconds   int    `yaml:"backoffBaseSeconds"`
	BackoffMaxSeconds    int    `yaml:"backoffMaxSeconds"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Atproto.PlcDirectory == "" {
		config.Atproto.PlcDirectory = "https://plc.directory"
	}
	if config.Atproto.Relay == "" {
		config.Atproto.Relay = "https://relay1.us-west.bsky.network"
	}
	if config.Stream.JetstreamURL == "" {
		config.Stream.JetstreamURL = "wss://jetstream1.us-west.bsky.network"
	}
	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}

	return config, nil
}

// Domain converts the file shape into the runtime view shared by the
// usecases and the index repository.
func (c Config) Domain() domain.Config {
	return domain.Config{
		Collections:         c.Atproto.Collections,
		ExternalCollections: c.Atproto.ExternalCollections,
		CollectionKeys:      c.Atproto.CollectionKeys,
		NotificationsOnly:   c.Atproto.NotificationsOnly,
	}
}
