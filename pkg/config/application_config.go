package config

import (
	"github.com/compactmint/compactmint/pkg/core/storage/dbconfig"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	// LogLevel is a minimal logged messages level (detected from
	// zapcore levels, "info" by default).
	LogLevel string `yaml:"LogLevel"`
	// LogPath is the log destination, stdout is used when empty.
	LogPath string `yaml:"LogPath"`

	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`

	RPC        RPC          `yaml:"RPC"`
	Prometheus BasicService `yaml:"Prometheus"`
	Pprof      BasicService `yaml:"Pprof"`
}

// RPC is an RPC service configuration information.
type RPC struct {
	BasicService `yaml:",inline"`
	// MaxWebSocketClients limits the number of concurrent websocket
	// event subscribers, 64 is used when zero.
	MaxWebSocketClients int `yaml:"MaxWebSocketClients"`
}
