// Package config resolves the engine's environment-driven configuration.
// Grounded on the teacher's apps/cli/internal/persistence/config.go
// resolution order (env var > explicit override > default) and
// clamp-with-bounds style, adapted from a CLI's layered file+env config to
// a headless worker's pure env-var resolution.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	minToolLoopSeconds = 30
	maxToolLoopSeconds = 3600
	defaultToolLoopSeconds = 300

	minShellBatchSeconds = 10
	maxShellBatchSeconds = 3600
	defaultShellBatchSeconds = 900

	defaultWebhookTriggerTimeout  = 15 * time.Second
	defaultWebhookDeliveryTimeout = 180 * time.Second
	defaultImageDownloadTimeout   = 30 * time.Second

	defaultWorkerConcurrency = 4

	defaultComputerUseMaxIterations = 50
	defaultShellLoopMaxIterations   = 50
)

// Config is the resolved, validated configuration for one worker process.
type Config struct {
	ObjectStoreBucket string
	ObjectStoreRegion string
	RecordStoreDSN    string

	ModelProviderBaseURL string
	ModelProviderAPIKey  string
	AnthropicAPIKey      string

	WorkerConcurrency int

	SentryDSN         string
	SentryEnvironment string

	CDNDomain string

	ServerAddr string

	// WorkflowTemplatesDir, when set, is scanned at startup for
	// workflow-template YAML files to seed into the record store.
	WorkflowTemplatesDir string

	CUADockerContainerName string
	CUADockerVNCDisplay    string
	CUADockerAutoStart     bool
	CUADockerStopOnCleanup bool

	ShellExecutorWorkRoot           string
	ShellExecutorUploadMode         string // manifest|dist|build|all
	ShellExecutorUploadBucket       string
	ShellExecutorUploadPrefixTmpl   string
	ShellS3UploadAllowedBuckets     []string

	ToolLoopTimeout       time.Duration
	ShellBatchTimeout     time.Duration
	WebhookTriggerTimeout time.Duration
	WebhookDeliveryTimeout time.Duration
	ImageDownloadTimeout  time.Duration

	ComputerUseMaxIterations int
	ShellLoopMaxIterations   int
}

// Load resolves Config from the process environment, applying defaults and
// clamping bounded knobs, matching the teacher's
// minTimeoutMins/maxTimeoutMins clamp idiom.
func Load() Config {
	c := Config{
		ObjectStoreBucket:    getenv("OBJECT_STORE_BUCKET", ""),
		ObjectStoreRegion:    getenv("OBJECT_STORE_REGION", "us-east-1"),
		RecordStoreDSN:       getenv("RECORD_STORE_DSN", "file:worker.db"),
		ModelProviderBaseURL: getenv("MODEL_PROVIDER_BASE_URL", ""),
		ModelProviderAPIKey:  getenv("MODEL_PROVIDER_API_KEY", ""),
		AnthropicAPIKey:      getenv("ANTHROPIC_API_KEY", ""),
		WorkerConcurrency:    getenvIntClamped("WORKER_CONCURRENCY", defaultWorkerConcurrency, 1, 64),
		SentryDSN:            getenv("SENTRY_DSN", ""),
		SentryEnvironment:    getenv("SENTRY_ENVIRONMENT", "production"),
		CDNDomain:            getenv("CDN_DOMAIN", ""),
		ServerAddr:           getenv("SERVER_ADDR", ":8080"),
		WorkflowTemplatesDir: getenv("WORKFLOW_TEMPLATES_DIR", ""),

		CUADockerContainerName: getenv("CUA_DOCKER_CONTAINER_NAME", "detent-cua"),
		CUADockerVNCDisplay:    getenv("CUA_DOCKER_VNC_DISPLAY", ":1"),
		CUADockerAutoStart:     getenvBool("CUA_DOCKER_AUTO_START", true),
		CUADockerStopOnCleanup: getenvBool("CUA_DOCKER_STOP_ON_CLEANUP", false),

		ShellExecutorWorkRoot:         getenv("SHELL_EXECUTOR_WORK_ROOT", "/work"),
		ShellExecutorUploadMode:       getenv("SHELL_EXECUTOR_UPLOAD_MODE", "manifest"),
		ShellExecutorUploadBucket:     getenv("SHELL_EXECUTOR_UPLOAD_BUCKET", ""),
		ShellExecutorUploadPrefixTmpl: getenv("SHELL_EXECUTOR_UPLOAD_PREFIX_TEMPLATE", "{tenant_id}/jobs/{job_id}/shell/"),
		ShellS3UploadAllowedBuckets:   splitCSV(getenv("SHELL_S3_UPLOAD_ALLOWED_BUCKETS", "")),

		ToolLoopTimeout:        time.Duration(getenvIntClamped("TOOL_LOOP_TIMEOUT_SECONDS", defaultToolLoopSeconds, minToolLoopSeconds, maxToolLoopSeconds)) * time.Second,
		ShellBatchTimeout:      time.Duration(getenvIntClamped("SHELL_BATCH_TIMEOUT_SECONDS", defaultShellBatchSeconds, minShellBatchSeconds, maxShellBatchSeconds)) * time.Second,
		WebhookTriggerTimeout:  durationOrDefault("WEBHOOK_TRIGGER_TIMEOUT_SECONDS", defaultWebhookTriggerTimeout),
		WebhookDeliveryTimeout: durationOrDefault("WEBHOOK_DELIVERY_TIMEOUT_SECONDS", defaultWebhookDeliveryTimeout),
		ImageDownloadTimeout:   durationOrDefault("IMAGE_DOWNLOAD_TIMEOUT_SECONDS", defaultImageDownloadTimeout),

		ComputerUseMaxIterations: getenvIntClamped("COMPUTER_USE_MAX_ITERATIONS", defaultComputerUseMaxIterations, 1, 500),
		ShellLoopMaxIterations:   getenvIntClamped("SHELL_LOOP_MAX_ITERATIONS", defaultShellLoopMaxIterations, 1, 500),
	}
	return c
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvIntClamped(key string, fallback, min, max int) int {
	v := os.Getenv(key)
	if v == "" {
		return clamp(fallback, min, max)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return clamp(fallback, min, max)
	}
	return clamp(n, min, max)
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			piece := trimSpace(v[start:i])
			if piece != "" {
				out = append(out, piece)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
