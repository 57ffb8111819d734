package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	JWTSecret          string
	JWTExpirationHours time.Duration

	// QR credential TTL, áp dụng cho toàn hệ thống.
	QRTokenTTL time.Duration

	// Biểu phí theo giờ (đơn vị tiền nguyên).
	FirstHourRate int
	ExtraHourRate int

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	qrTTLMinutes, _ := strconv.Atoi(getEnv("QR_TTL_MINUTES", "30"))
	firstHourRate, _ := strconv.Atoi(getEnv("FIRST_HOUR_RATE", "10000"))
	extraHourRate, _ := strconv.Atoi(getEnv("EXTRA_HOUR_RATE", "5000"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parkir"),
		DBPassword: getEnv("DB_PASSWORD", "parkir"),
		DBName:     getEnv("DB_NAME", "parkir_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production-!@#$"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		QRTokenTTL: time.Duration(qrTTLMinutes) * time.Minute,

		FirstHourRate: firstHourRate,
		ExtraHourRate: extraHourRate,

		AWSRegion:        getEnv("AWS_REGION", "ap-southeast-1"),
		SQSEventQueueURL: getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:  getEnv("IOT_MQTT_ENDPOINT", ""),
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
