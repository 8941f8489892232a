package internal

import "time"

type Config struct {
	ServerURL string `env:"CONNECT_SERVER_URL,required=true"`
	AuthToken string `env:"CONNECT_AUTH_TOKEN,required=true"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`

	// Delay before the first socket attempt, so a slow connect does not
	// flash an error during initial render.
	ConnectGraceDelay time.Duration `env:"CONNECT_GRACE_DELAY,default=300ms"`

	// Fixed reconnect backoff. Not exponential: the peer is a controlled
	// backend, not an arbitrary internet host.
	ReconnectDelay       time.Duration `env:"RECONNECT_DELAY,default=3s"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS,default=3"`

	PollInterval   time.Duration `env:"POLL_INTERVAL,default=3s"`
	EchoWindow     time.Duration `env:"ECHO_WINDOW,default=5s"`
	PendingTTL     time.Duration `env:"PENDING_TTL,default=10s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=10s"`

	HistoryPageSize int `env:"HISTORY_PAGE_SIZE,default=50"`

	// Viewer-only local archive locations.
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/archive"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/index"`
}
