package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	Rooms  []RoomConfig `mapstructure:"rooms"`
}

type ServerConfig struct {
	TCPAddress     string        `mapstructure:"tcp_address"`
	WSAddress      string        `mapstructure:"ws_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	MaxClients     int           `mapstructure:"max_clients"`
	RedirectHint   string        `mapstructure:"redirect_hint"`
	MaxFrameSize   uint32        `mapstructure:"max_frame_size"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongTimeout    time.Duration `mapstructure:"pong_timeout"`
}

type GameConfig struct {
	// StrictWords enables the invalid-prefix loss rule: a letter that makes
	// the fragment an impossible word start is refused and penalized.
	StrictWords bool `mapstructure:"strict_words"`
}

type RoomConfig struct {
	ID       uint32 `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Capacity int    `mapstructure:"capacity"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.tcp_address", "0.0.0.0:5000")
	viper.SetDefault("server.ws_address", "")
	viper.SetDefault("server.rpc_address", "127.0.0.1:5001")
	viper.SetDefault("server.metrics_address", "")
	viper.SetDefault("server.max_clients", 64)
	viper.SetDefault("server.redirect_hint", "server full, try the secondary")
	viper.SetDefault("server.max_frame_size", 10*1024*1024)
	viper.SetDefault("server.read_timeout", time.Second)
	viper.SetDefault("server.ping_interval", 30*time.Second)
	viper.SetDefault("server.pong_timeout", 5*time.Second)
	viper.SetDefault("game.strict_words", false)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		// Defaults are enough to run; only a malformed file is fatal.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}

	if len(config.Rooms) == 0 {
		config.Rooms = DefaultRooms()
	}
	for _, r := range config.Rooms {
		// Member counts travel in one-byte wire fields.
		if r.Capacity < 1 || r.Capacity > 255 {
			return nil, fmt.Errorf("room %q has invalid capacity %d, must be 1-255", r.Name, r.Capacity)
		}
	}
	return config, nil
}

// DefaultRooms is the fixed room table used when the config file does not
// define one.
func DefaultRooms() []RoomConfig {
	return []RoomConfig{
		{ID: 1, Name: "Table 1", Capacity: 5},
		{ID: 2, Name: "Table 2", Capacity: 5},
		{ID: 3, Name: "Table 3", Capacity: 5},
	}
}
