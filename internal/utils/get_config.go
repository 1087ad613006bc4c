package utils

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	AppPort string `yaml:"APP_PORT"`
	LogFile string `yaml:"LOG_FILE"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// Empty secret disables bearer auth on the API
	JWTSecret string `yaml:"JWT_SECRET"`

	// Receipt file storage: local, s3 or minio
	StorageDriver   string `yaml:"STORAGE_DRIVER"`
	StorageLocalDir string `yaml:"STORAGE_LOCAL_DIR"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// MinIO configuration
	MinioEndpoint  string `yaml:"MINIO_ENDPOINT"`
	MinioAccessKey string `yaml:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `yaml:"MINIO_SECRET_KEY"`
	MinioBucket    string `yaml:"MINIO_BUCKET"`
	MinioUseSSL    bool   `yaml:"MINIO_USE_SSL"`

	// MinerU OCR service
	MineruBaseURL       string `yaml:"MINERU_BASE_URL"`
	MineruTimeout       int    `yaml:"MINERU_TIMEOUT"`
	MineruEnableTable   bool   `yaml:"MINERU_ENABLE_TABLE"`
	MineruEnableFormula bool   `yaml:"MINERU_ENABLE_FORMULA"`
	MineruLang          string `yaml:"MINERU_LANG"`

	// OpenAI-compatible LLM endpoint
	LLMBaseURL       string  `yaml:"LLM_BASE_URL"`
	LLMAPIKey        string  `yaml:"LLM_API_KEY"`
	LLMModel         string  `yaml:"LLM_MODEL"`
	LLMTemperature   float64 `yaml:"LLM_TEMPERATURE"`
	LLMTimeout       int     `yaml:"LLM_TIMEOUT"`
	LLMPartialPolicy string  `yaml:"LLM_PARTIAL_POLICY"`

	ExternalRatePerSecond float64 `yaml:"EXTERNAL_RATE_PER_SECOND"`
	ExternalRateBurst     int     `yaml:"EXTERNAL_RATE_BURST"`
	CatalogCacheTTL       int     `yaml:"CATALOG_CACHE_TTL"`
	EventBufferSize       int     `yaml:"EVENT_BUFFER_SIZE"`
}

var config = defaultConfig()

func defaultConfig() Config {
	return Config{
		AppPort:               "8080",
		LogFile:               "./logs/app.log",
		DBPort:                "5432",
		StorageDriver:         "local",
		StorageLocalDir:       "data/receipts",
		MineruBaseURL:         "http://localhost:8000",
		MineruEnableTable:     true,
		MineruLang:            "en",
		LLMBaseURL:            "http://localhost:9003/v1",
		LLMAPIKey:             "ollama",
		LLMModel:              "qwen2-vl",
		LLMTemperature:        0.1,
		LLMTimeout:            120,
		LLMPartialPolicy:      "strict",
		ExternalRatePerSecond: 2,
		ExternalRateBurst:     4,
		CatalogCacheTTL:       300,
		EventBufferSize:       256,
	}
}

// LoadConfig reads the yaml file at path. A missing file is not fatal: defaults
// and environment variables still apply.
func LoadConfig(path string) {
	file, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	if err := yaml.Unmarshal(file, &config); err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}
}

func GetConfig(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	switch key {
	case "APP_PORT":
		return config.AppPort
	case "LOG_FILE":
		return config.LogFile
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		return config.JWTSecret
	case "STORAGE_DRIVER":
		return config.StorageDriver
	case "STORAGE_LOCAL_DIR":
		return config.StorageLocalDir
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "MINIO_ENDPOINT":
		return config.MinioEndpoint
	case "MINIO_ACCESS_KEY":
		return config.MinioAccessKey
	case "MINIO_SECRET_KEY":
		return config.MinioSecretKey
	case "MINIO_BUCKET":
		return config.MinioBucket
	case "MINIO_USE_SSL":
		return strconv.FormatBool(config.MinioUseSSL)
	case "MINERU_BASE_URL":
		return config.MineruBaseURL
	case "MINERU_TIMEOUT":
		return strconv.Itoa(config.MineruTimeout)
	case "MINERU_ENABLE_TABLE":
		return strconv.FormatBool(config.MineruEnableTable)
	case "MINERU_ENABLE_FORMULA":
		return strconv.FormatBool(config.MineruEnableFormula)
	case "MINERU_LANG":
		return config.MineruLang
	case "LLM_BASE_URL":
		return config.LLMBaseURL
	case "LLM_API_KEY":
		return config.LLMAPIKey
	case "LLM_MODEL":
		return config.LLMModel
	case "LLM_TEMPERATURE":
		return strconv.FormatFloat(config.LLMTemperature, 'f', -1, 64)
	case "LLM_TIMEOUT":
		return strconv.Itoa(config.LLMTimeout)
	case "LLM_PARTIAL_POLICY":
		return config.LLMPartialPolicy
	case "EXTERNAL_RATE_PER_SECOND":
		return strconv.FormatFloat(config.ExternalRatePerSecond, 'f', -1, 64)
	case "EXTERNAL_RATE_BURST":
		return strconv.Itoa(config.ExternalRateBurst)
	case "CATALOG_CACHE_TTL":
		return strconv.Itoa(config.CatalogCacheTTL)
	case "EVENT_BUFFER_SIZE":
		return strconv.Itoa(config.EventBufferSize)
	default:
		return ""
	}
}

func GetConfigInt(key string) int {
	v, err := strconv.Atoi(GetConfig(key))
	if err != nil {
		return 0
	}
	return v
}

func GetConfigFloat(key string) float64 {
	v, err := strconv.ParseFloat(GetConfig(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func GetConfigBool(key string) bool {
	v, err := strconv.ParseBool(GetConfig(key))
	if err != nil {
		return false
	}
	return v
}

// GetConfigDuration reads an integer number of seconds. Zero means "no limit".
func GetConfigDuration(key string) time.Duration {
	return time.Duration(GetConfigInt(key)) * time.Second
}
