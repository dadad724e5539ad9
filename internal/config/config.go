package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// ErrAPIKeyMissing is a startup configuration error, never a runtime query failure.
var ErrAPIKeyMissing = errors.New("OPENWEATHERMAP_API_KEY environment variable not set")

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		setDefaults()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if !isTestRun() {
			return
		}
		viper.SetConfigName("config_test")
		if err = viper.MergeInConfig(); err != nil {
			GetLogger().Errorw("Error reading test config file", "error", err)
		}
	})
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("openweathermap.onecall_url", "https://api.openweathermap.org/data/3.0")
	viper.SetDefault("openweathermap.weather_url", "https://api.openweathermap.org/data/2.5")
	viper.SetDefault("openweathermap.geo_url", "https://api.openweathermap.org")
	viper.SetDefault("openweathermap.retry_count", 3)
	viper.SetDefault("cache.stale_time", "30m")
	viper.SetDefault("preferences.key", "weather-store")
	viper.SetDefault("device.source", "ip")
	viper.SetDefault("device.ip_url", "http://ip-api.com/json")
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// GetOneCallApiUrl is the base URL the /onecall endpoint hangs off.
func GetOneCallApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.onecall_url")
}

// GetOpenWeatherApiUrl is the base URL of the by-name /weather endpoint.
func GetOpenWeatherApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.weather_url")
}

// GetGeocodingApiUrl is the base URL of the /geo/1.0/direct endpoint.
func GetGeocodingApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.geo_url")
}

func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("OPENWEATHERMAP_API_KEY")
}

// RequireOpenWeatherMapAPIKey returns the key or ErrAPIKeyMissing when it is unset.
func RequireOpenWeatherMapAPIKey() (string, error) {
	key := GetOpenWeatherMapAPIKey()
	if key == "" {
		return "", ErrAPIKeyMissing
	}
	return key, nil
}

// GetRetryCount is how many times the transport retries a transient failure.
func GetRetryCount() int {
	initConfig()
	return viper.GetInt("openweathermap.retry_count")
}

// GetRetryWait returns the initial and maximum transport backoff.
func GetRetryWait() (wait, maxWait time.Duration) {
	initConfig()
	wait = getDuration("openweathermap.retry_wait", time.Second)
	maxWait = getDuration("openweathermap.retry_max_wait", 5*time.Second)
	return
}

func GetProviderTimeout() time.Duration {
	initConfig()
	return getDuration("openweathermap.timeout", 10*time.Second)
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

// GetRedisDB selects the logical database shared by the snapshot cache and the preference record.
func GetRedisDB() int {
	initConfig()
	return viper.GetInt("redis.db")
}

// GetRedisTimeout bounds dial, read and write on the Redis connection.
func GetRedisTimeout() time.Duration {
	initConfig()
	return getDuration("redis.timeout", 3*time.Second)
}

func GetServerPort() string {
	initConfig()
	serverPort := viper.GetString("server.port")
	return serverPort
}

// GetStaleTime is the freshness window of a successful weather result.
func GetStaleTime() time.Duration {
	initConfig()
	return getDuration("cache.stale_time", 30*time.Minute)
}

func GetPreferencesKey() string {
	initConfig()
	return viper.GetString("preferences.key")
}

// GetDeviceSource selects the positioner: "ip", "static" or "none".
func GetDeviceSource() string {
	initConfig()
	return viper.GetString("device.source")
}

func GetDeviceIPUrl() string {
	initConfig()
	return viper.GetString("device.ip_url")
}

// GetDeviceCoordinate returns the configured position for the static positioner.
func GetDeviceCoordinate() (lat, lon float64) {
	initConfig()
	return viper.GetFloat64("device.latitude"), viper.GetFloat64("device.longitude")
}

// GetServerTimeoutDuration parses a server timeout, falling back to def.
func GetServerTimeoutDuration(key string, def time.Duration) time.Duration {
	initConfig()
	return getDuration("server."+key, def)
}

func GetTestRedisMockPort() string {
	initConfig()
	return viper.GetString("test.redis_mock_port")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	initConfig()
	return getDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 10
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 10
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the per-location limiter.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 2
	}
	return
}

func getDuration(key string, def time.Duration) time.Duration {
	durStr := viper.GetString(key)
	if durStr == "" {
		return def
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		return def
	}
	return dur
}
