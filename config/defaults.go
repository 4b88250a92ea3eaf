// =============================================================================
// 📦 testsmith 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		LLM:          DefaultLLMConfig(),
		Generation:   DefaultGenerationConfig(),
		Repair:       DefaultRepairConfig(),
		Workflow:     DefaultWorkflowConfig(),
		Toolchain:    DefaultToolchainConfig(),
		ContextStore: DefaultContextStoreConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8090,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:     "https://api.openai.com",
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     60 * time.Second,
		DotenvPath:  ".env",
	}
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		DefaultPackage: "com.testsmith.generated",
		PromptDir:      "prompts",
		Temperature:    0.7,
		MaxTokens:      2048,
	}
}

// DefaultRepairConfig 返回默认修复配置
func DefaultRepairConfig() RepairConfig {
	return RepairConfig{
		MaxAttempts:      2,
		Temperature:      0.2,
		MaxTokens:        4096,
		MaxTokensCeiling: 16384,
		TokenizerModel:   "gpt-4o",
	}
}

// DefaultWorkflowConfig 返回默认工作流配置
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		CompileTimeout: 3 * time.Minute,
		RunTimeout:     5 * time.Minute,
		Execute:        true,
	}
}

// DefaultToolchainConfig 返回默认工具链配置
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		Enabled:        false,
		WorkDir:        ".",
		SourceRoot:     "src/test/java",
		CompileCommand: []string{"mvn", "-q", "test-compile"},
		RunCommand:     []string{"mvn", "-q", "-Dtest={test}", "test"},
		MaxOutputBytes: 64 * 1024,
	}
}

// DefaultContextStoreConfig 返回默认上下文存储配置
func DefaultContextStoreConfig() ContextStoreConfig {
	return ContextStoreConfig{
		Driver:           "memory",
		FallbackToMemory: true,
		ConnectRetries:   3,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "testsmith",
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "mcpdb",
			Collection:     "context",
			ConnectTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "testsmith",
			Name:            "testsmith",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "testsmith",
		SampleRate:   0.1,
	}
}
