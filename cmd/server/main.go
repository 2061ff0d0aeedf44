package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/together/internal/app"
	"github.com/sharetube/together/internal/domain"
	"github.com/sharetube/together/internal/hub"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	publicURL = configVar[string]{
		envKey:       "SERVER_PUBLIC_URL",
		flagKey:      "public-url",
		defaultValue: "http://localhost:3000/watch",
	}
	heartbeatTimeout = configVar[time.Duration]{
		envKey:       "ROOM_HEARTBEAT_TIMEOUT",
		flagKey:      "heartbeat-timeout",
		defaultValue: hub.DefaultHeartbeatTimeout,
	}
	gracePeriod = configVar[time.Duration]{
		envKey:       "ROOM_GRACE_PERIOD",
		flagKey:      "grace-period",
		defaultValue: hub.DefaultGracePeriod,
	}
	stalenessTolerance = configVar[time.Duration]{
		envKey:       "ROOM_STALENESS_TOLERANCE",
		flagKey:      "staleness-tolerance",
		defaultValue: domain.DefaultStalenessTolerance,
	}
	membersLimit = configVar[int]{
		envKey:       "ROOM_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: hub.DefaultMaxParticipants,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	pflag.String(secret.flagKey, secret.defaultValue, "Identity token signing secret, tokens are ignored when empty")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(publicURL.flagKey, publicURL.defaultValue, "Base URL that shareable room links are built on")
	pflag.Duration(heartbeatTimeout.flagKey, heartbeatTimeout.defaultValue, "Participant is evicted after this long without a heartbeat")
	pflag.Duration(gracePeriod.flagKey, gracePeriod.defaultValue, "Empty room is destroyed after this long")
	pflag.Duration(stalenessTolerance.flagKey, stalenessTolerance.defaultValue, "Playback intents older than the current state by more than this are rejected")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of participants in a room, 0 means unlimited")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host, room directory is kept in memory when empty")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(secret)
	bind(port)
	bind(host)
	bind(logLevel)
	bind(publicURL)
	bind(heartbeatTimeout)
	bind(gracePeriod)
	bind(stalenessTolerance)
	bind(membersLimit)
	bind(redisPort)
	bind(redisHost)
	bind(redisPassword)

	config := &app.AppConfig{
		Secret:             viper.GetString(secret.flagKey),
		Host:               viper.GetString(host.flagKey),
		Port:               viper.GetInt(port.flagKey),
		LogLevel:           viper.GetString(logLevel.flagKey),
		PublicURL:          viper.GetString(publicURL.flagKey),
		HeartbeatTimeout:   viper.GetDuration(heartbeatTimeout.flagKey),
		GracePeriod:        viper.GetDuration(gracePeriod.flagKey),
		StalenessTolerance: viper.GetDuration(stalenessTolerance.flagKey),
		MembersLimit:       viper.GetInt(membersLimit.flagKey),
		RedisPort:          viper.GetInt(redisPort.flagKey),
		RedisHost:          viper.GetString(redisHost.flagKey),
		RedisPassword:      viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	// .env is optional, real environment wins
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
