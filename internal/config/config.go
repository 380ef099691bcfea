package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env          string
	Port         int
	PortAttempts int // successive ports tried when Port is already bound
	Origins      []string
}

func Load() Config {
	return Config{
		Env:          getenv("APP_ENV", "dev"),
		Port:         getenvInt("PORT", 8080),
		PortAttempts: getenvInt("PORT_ATTEMPTS", 10),
		Origins:      splitCSV(getenv("ORIGIN_ALLOWLIST", "localhost:* 127.0.0.1:*")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
