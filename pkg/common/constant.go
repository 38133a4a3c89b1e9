package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTDBType      string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath      string = "IOT_DB_PATH"
	EnvKeyIOTPostgresDSN string = "IOT_POSTGRES_DSN"
	EnvKeyMongoURL       string = "MONGODB_URL"
	EnvKeyMongoDatabase  string = "MONGODB_DATABASE"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"
	EnvKeyIOTGrpcHostPort string = "IOT_GRPC_HOST_PORT"
	EnvKeyIOTCorsOrigins  string = "IOT_CORS_ORIGINS"

	EnvKeyIOTHistoryLimit string = "IOT_HISTORY_LIMIT"

	EnvKeyIOTPostProcessWorkers string = "IOT_POSTPROCESS_WORKERS"
	EnvKeyIOTPostProcessQueue   string = "IOT_POSTPROCESS_QUEUE"
	EnvKeyIOTDefaultRate        string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst       string = "IOT_DEFAULT_BURST"

	EnvKeyIOTRedisURL     string = "IOT_REDIS_URL"
	EnvKeyIOTRedisStream  string = "IOT_REDIS_STREAM"
	EnvKeyIOTMQTTBroker   string = "IOT_MQTT_BROKER"
	EnvKeyIOTMQTTTopic    string = "IOT_MQTT_TOPIC"
	EnvKeyIOTMQTTClientID string = "IOT_MQTT_CLIENT_ID"

	EnvKeyIOTTracingEnabled string = "IOT_TRACING_ENABLED"

	DBTypeMongo    string = "mongo"
	DBTypePostgres string = "postgres"
	DBTypeFile     string = "file"
	DBTypeMemory   string = "memory"

	ServiceName string = "iwown-health-service"

	LoggerNameIOTCore       string = "iot_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameStore         string = "store"
	LoggerNameEvents        string = "events"

	LoggerFieldIOTCategory         string = "category"
	LoggerCategoryIOTIngest        string = "ingest"
	LoggerCategoryIOTDashboard     string = "dashboard"
	LoggerCategoryIOTPostProcess   string = "postprocess"
	LoggerCategoryIOTStoreLifetime string = "store"

	// UnknownDeviceID is used when neither the DeviceId header nor the payload names a device.
	UnknownDeviceID string = "unknown"

	// ISOTimestampLayout keeps fixed-width microseconds so stored timestamps sort lexically.
	ISOTimestampLayout string = "2006-01-02T15:04:05.000000-07:00"
	SleepDateLayout    string = "2006-01-02"

	DefaultHistoryLimit int64 = 100
)
