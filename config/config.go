package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port             int
	Debug            bool
	ERPBaseURL       string
	ERPUsername      string
	ERPPassword      string
	ERPTimeout       time.Duration
	UseMockSource    bool
	HeartbeatPeriod  time.Duration
	HeartbeatTimeout time.Duration
	DefaultWarehouse string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() *Config {
	// .env 文件可选，不存在时忽略
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	erpTimeout, _ := strconv.Atoi(getEnv("ERP_TIMEOUT_SECONDS", "30"))
	heartbeat, _ := strconv.Atoi(getEnv("WS_HEARTBEAT_SECONDS", "30"))

	return &Config{
		Port:             port,
		Debug:            getEnv("GIN_MODE", "debug") == "debug",
		ERPBaseURL:       getEnv("ERP_BASE_URL", "http://127.0.0.1:8100"),
		ERPUsername:      getEnv("ERP_USERNAME", "sync"),
		ERPPassword:      getEnv("ERP_PASSWORD", ""),
		ERPTimeout:       time.Duration(erpTimeout) * time.Second,
		UseMockSource:    getEnv("USE_MOCK_SOURCE", "true") == "true",
		HeartbeatPeriod:  time.Duration(heartbeat) * time.Second,
		HeartbeatTimeout: time.Duration(heartbeat) * time.Second * 2,
		DefaultWarehouse: getEnv("DEFAULT_WAREHOUSE", ""),
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
