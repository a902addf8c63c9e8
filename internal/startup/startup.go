package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/manifest"

	"gopkg.in/yaml.v3"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all pipeline configuration
type Config struct {
	InputDir   string
	OutputDir  string
	PublicPath string

	Widths  []int
	Formats []codec.Format
	Quality int

	SkipExisting     bool
	KeepOriginal     bool
	GenerateManifest bool

	Watch         bool
	DebounceDelay time.Duration

	Port           string
	MetricsPort    string
	MetricsEnabled bool

	// Derived paths
	ManifestPath string
}

// fileConfig is the optional YAML config file shape. Environment variables
// take precedence over values set here.
type fileConfig struct {
	InputDir   string   `yaml:"input_dir"`
	OutputDir  string   `yaml:"output_dir"`
	PublicPath string   `yaml:"public_path"`
	Widths     []int    `yaml:"widths"`
	Formats    []string `yaml:"formats"`
	Quality    int      `yaml:"quality"`

	SkipExisting     *bool `yaml:"skip_existing"`
	KeepOriginal     *bool `yaml:"keep_original"`
	GenerateManifest *bool `yaml:"generate_manifest"`

	Watch         *bool  `yaml:"watch"`
	DebounceDelay string `yaml:"debounce_delay"`

	Port           string `yaml:"port"`
	MetricsPort    string `yaml:"metrics_port"`
	MetricsEnabled *bool  `yaml:"metrics_enabled"`
}

// Defaults used when neither environment nor config file provide a value.
const (
	defaultInputDir      = "./images"
	defaultOutputDir     = "./optimized"
	defaultPublicPath    = "/optimized"
	defaultWidths        = "320,640,1024,1920"
	defaultFormats       = "webp,jpeg"
	defaultQuality       = 80
	defaultDebounceDelay = 300 * time.Millisecond
)

// LoadConfig loads configuration from an optional YAML file and environment
// variables, validates it, and logs the effective settings.
func LoadConfig(configFile string) (*Config, error) {
	printBanner()
	logSystemInfo()

	file, err := loadFileConfig(configFile)
	if err != nil {
		return nil, err
	}

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	inputDir := getEnv("INPUT_DIR", pick(file.InputDir, defaultInputDir))
	outputDir := getEnv("OUTPUT_DIR", pick(file.OutputDir, defaultOutputDir))
	publicPath := getEnv("PUBLIC_PATH", pick(file.PublicPath, defaultPublicPath))

	widthsStr := getEnv("WIDTHS", pick(joinInts(file.Widths), defaultWidths))
	formatsStr := getEnv("FORMATS", pick(strings.Join(file.Formats, ","), defaultFormats))
	quality := getEnvInt("QUALITY", pickInt(file.Quality, defaultQuality))

	skipExisting := getEnvBool("SKIP_EXISTING", pickBool(file.SkipExisting, true))
	keepOriginal := getEnvBool("KEEP_ORIGINAL", pickBool(file.KeepOriginal, false))
	generateManifest := getEnvBool("GENERATE_MANIFEST", pickBool(file.GenerateManifest, true))

	watch := getEnvBool("WATCH", pickBool(file.Watch, false))
	debounceStr := getEnv("DEBOUNCE_DELAY", pick(file.DebounceDelay, ""))

	port := getEnv("PORT", pick(file.Port, "8080"))
	metricsPort := getEnv("METRICS_PORT", pick(file.MetricsPort, "9090"))
	metricsEnabled := getEnvBool("METRICS_ENABLED", pickBool(file.MetricsEnabled, true))

	widths, err := parseWidths(widthsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WIDTHS: %w", err)
	}

	formats, err := parseFormats(formatsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FORMATS: %w", err)
	}

	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("QUALITY must be between 1 and 100, got %d", quality)
	}

	debounceDelay := defaultDebounceDelay
	if debounceStr != "" {
		debounceDelay, err = time.ParseDuration(debounceStr)
		if err != nil || debounceDelay <= 0 {
			logging.Warn("  Invalid DEBOUNCE_DELAY %q, using default: %v", debounceStr, defaultDebounceDelay)
			debounceDelay = defaultDebounceDelay
		}
	}

	inputDir, err = filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory path: %w", err)
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}

	config := &Config{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		PublicPath:       publicPath,
		Widths:           widths,
		Formats:          formats,
		Quality:          quality,
		SkipExisting:     skipExisting,
		KeepOriginal:     keepOriginal,
		GenerateManifest: generateManifest,
		Watch:            watch,
		DebounceDelay:    debounceDelay,
		Port:             port,
		MetricsPort:      metricsPort,
		MetricsEnabled:   metricsEnabled,
		ManifestPath:     filepath.Join(outputDir, manifest.Filename),
	}

	logging.Info("  INPUT_DIR:          %s", config.InputDir)
	logging.Info("  OUTPUT_DIR:         %s", config.OutputDir)
	logging.Info("  PUBLIC_PATH:        %s", config.PublicPath)
	logging.Info("  WIDTHS:             %v", config.Widths)
	logging.Info("  FORMATS:            %v", config.Formats)
	logging.Info("  QUALITY:            %d", config.Quality)
	logging.Info("  SKIP_EXISTING:      %v", config.SkipExisting)
	logging.Info("  KEEP_ORIGINAL:      %v", config.KeepOriginal)
	logging.Info("  GENERATE_MANIFEST:  %v", config.GenerateManifest)
	logging.Info("  WATCH:              %v", config.Watch)
	logging.Info("  DEBOUNCE_DELAY:     %v", config.DebounceDelay)
	logging.Info("  PORT:               %s", config.Port)
	logging.Info("  METRICS_PORT:       %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:    %v", config.MetricsEnabled)
	logging.Info("  LOG_LEVEL:          %s", logging.GetLevel())

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return config, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig

	explicit := path != ""
	if path == "" {
		path = "pipeline.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return fc, nil
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logging.Info("Using config file: %s", path)
	return fc, nil
}

func parseWidths(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		w, err := strconv.Atoi(p)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("width %q is not a positive integer", p)
		}
		widths = append(widths, w)
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("no widths configured")
	}
	return widths, nil
}

func parseFormats(s string) ([]codec.Format, error) {
	parts := strings.Split(s, ",")
	formats := make([]codec.Format, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := codec.ParseFormat(p)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no formats configured")
	}
	return formats, nil
}

// Helper functions

func printBanner() {
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGE PIPELINE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("")
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(port, metricsPort string, metricsEnabled bool, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://localhost:%s", port)
	if metricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", metricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func pickInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func pickBool(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
