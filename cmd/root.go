package cmd

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-screener"

	defaultExportPath      = "ranked_candidates.csv"
	defaultDocumentTimeout = 30 * time.Second
)

type Config struct {
	Scorer    string           `mapstructure:"scorer" validate:"oneof=keyword gemini"`
	Screening *ScreeningConfig `mapstructure:"screening" validate:"required"`
	Export    *ExportConfig    `mapstructure:"export" validate:"required"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type ScreeningConfig struct {
	Policy          string        `mapstructure:"policy" validate:"oneof=skip abort"`
	DocumentTimeout time.Duration `mapstructure:"document-timeout" validate:"min=0s"`
	// MinimumScore only filters the interactive view. Exports always carry every row.
	MinimumScore int `mapstructure:"minimum-score" validate:"min=0,max=100"`
}

type ExportConfig struct {
	// Path of the CSV export. An empty path writes to a new temporary file.
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model" validate:"required"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"min=1,max=10"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"min=0"`
}

// ConfigurationError reports a missing or invalid configuration value.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-screener ranks candidate resumes against a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatalf("binding environment variables: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scorer", "keyword")
	v.SetDefault("screening.policy", "skip")
	v.SetDefault("screening.document-timeout", defaultDocumentTimeout)
	v.SetDefault("screening.minimum-score", 0)
	v.SetDefault("export.path", defaultExportPath)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"scorer":                 "RESUME_SCREENER_SCORER",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

func initConfig() {
	// Only screening reads the config.
	if screenCmd.CalledAs() == "" {
		return
	}

	// A missing .env file is fine, the variables may come from the shell.
	_ = godotenv.Load()

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig reads the explicit config file, or resume-screener.yaml from the
// current directory when it exists.
func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		return v.ReadInConfig()
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigurationError{Key: "config", Err: err}
	}

	if config == nil {
		return nil, &ConfigurationError{Key: "config", Err: errors.New("config is empty")}
	}

	config.Scorer = strings.ToLower(strings.TrimSpace(config.Scorer))
	if config.Screening != nil {
		config.Screening.Policy = strings.ToLower(strings.TrimSpace(config.Screening.Policy))
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ConfigurationError{Key: "config", Err: err}
	}

	first := fieldErrors[0]
	key := first.Namespace()
	if idx := strings.Index(key, "."); idx != -1 {
		key = key[idx+1:]
	}

	return &ConfigurationError{
		Key: key,
		Err: fmt.Errorf("value %v does not satisfy %q", first.Value(), validationRule(first)),
	}
}

func validationRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
