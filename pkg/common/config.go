package common

import (
	"fmt"
	"strings"

	z "github.com/Oudwins/zog"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	DBType        string
	DBPath        string
	PostgresDSN   string
	MongoURL      string
	MongoDatabase string

	HTTPHostPort string
	GrpcHostPort string
	CorsOrigins  []string

	HistoryLimit int

	PostProcessWorkers int
	PostProcessQueue   int
	DefaultRate        float64
	DefaultBurst       int

	RedisURL     string
	RedisStream  string
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	TracingEnabled bool
}

var configSchema = z.Struct(z.Shape{
	"DBType":             z.String().OneOf([]string{DBTypeMongo, DBTypePostgres, DBTypeFile, DBTypeMemory}).Required(),
	"MongoDatabase":      z.String().Required(),
	"HTTPHostPort":       z.String().Required(),
	"HistoryLimit":       z.Int().Required().GT(0),
	"PostProcessWorkers": z.Int().Required().GT(0),
	"PostProcessQueue":   z.Int().Required().GT(0),
	"DefaultRate":        z.Float64().GTE(0),
	"DefaultBurst":       z.Int().GTE(0),
})

// LoadConfig reads .env (when present) into the process environment and
// builds the service configuration from it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		GetLogger().Info("No .env file loaded, using process environment", zap.Error(err))
	}
	return ConfigFromEnv()
}

func ConfigFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(EnvKeyIOTDBType, DBTypeMongo)
	v.SetDefault(EnvKeyIOTDbPath, "iwown.db")
	v.SetDefault(EnvKeyMongoDatabase, "iwown_health")
	v.SetDefault(EnvKeyIOTHttpHostPort, ":8000")
	v.SetDefault(EnvKeyIOTCorsOrigins, "*")
	v.SetDefault(EnvKeyIOTHistoryLimit, DefaultHistoryLimit)
	v.SetDefault(EnvKeyIOTPostProcessWorkers, 2)
	v.SetDefault(EnvKeyIOTPostProcessQueue, 256)
	v.SetDefault(EnvKeyIOTDefaultRate, 5.0)
	v.SetDefault(EnvKeyIOTDefaultBurst, 10)
	v.SetDefault(EnvKeyIOTRedisStream, "iwown:health:uploads")
	v.SetDefault(EnvKeyIOTMQTTTopic, "iwown/health/uploads")
	v.SetDefault(EnvKeyIOTMQTTClientID, ServiceName)
	v.SetDefault(EnvKeyIOTTracingEnabled, false)

	cfg := &Config{
		DBType:        strings.ToLower(strings.TrimSpace(v.GetString(EnvKeyIOTDBType))),
		DBPath:        strings.TrimSpace(v.GetString(EnvKeyIOTDbPath)),
		PostgresDSN:   strings.TrimSpace(v.GetString(EnvKeyIOTPostgresDSN)),
		MongoURL:      strings.TrimSpace(v.GetString(EnvKeyMongoURL)),
		MongoDatabase: strings.TrimSpace(v.GetString(EnvKeyMongoDatabase)),

		HTTPHostPort: strings.TrimSpace(v.GetString(EnvKeyIOTHttpHostPort)),
		GrpcHostPort: strings.TrimSpace(v.GetString(EnvKeyIOTGrpcHostPort)),
		CorsOrigins:  splitList(v.GetString(EnvKeyIOTCorsOrigins)),

		HistoryLimit: v.GetInt(EnvKeyIOTHistoryLimit),

		PostProcessWorkers: v.GetInt(EnvKeyIOTPostProcessWorkers),
		PostProcessQueue:   v.GetInt(EnvKeyIOTPostProcessQueue),
		DefaultRate:        v.GetFloat64(EnvKeyIOTDefaultRate),
		DefaultBurst:       v.GetInt(EnvKeyIOTDefaultBurst),

		RedisURL:     strings.TrimSpace(v.GetString(EnvKeyIOTRedisURL)),
		RedisStream:  strings.TrimSpace(v.GetString(EnvKeyIOTRedisStream)),
		MQTTBroker:   strings.TrimSpace(v.GetString(EnvKeyIOTMQTTBroker)),
		MQTTTopic:    strings.TrimSpace(v.GetString(EnvKeyIOTMQTTTopic)),
		MQTTClientID: strings.TrimSpace(v.GetString(EnvKeyIOTMQTTClientID)),

		TracingEnabled: v.GetBool(EnvKeyIOTTracingEnabled),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if issues := configSchema.Validate(c); issues != nil {
		return fmt.Errorf("invalid configuration: %v", issues)
	}

	switch c.DBType {
	case DBTypeMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvKeyMongoURL, EnvKeyIOTDBType, DBTypeMongo)
		}
	case DBTypePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvKeyIOTPostgresDSN, EnvKeyIOTDBType, DBTypePostgres)
		}
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
