package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"` // comma-separated; empty allows all
	EnableModeration     bool          `env:"ENABLE_MODERATION,default=true"`
	CensorReplacement    string        `env:"CENSOR_REPLACEMENT,default=*"`
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSOR_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
