package commands

import (
	"os"

	"mvr-docstatus/lib/captcha"
	"mvr-docstatus/lib/configutil"
	configlibsql "mvr-docstatus/lib/configutil/libsql"
	"mvr-docstatus/lib/notify"
	"mvr-docstatus/lib/scrapers/mvr"
)

type HistoryConfig struct {
	Database    configlibsql.Struct `json:"database"`
	KeepRawHTML bool                `json:"keep_raw_html"`
}

type Config struct {
	Client  mvr.Config           `json:"client"`
	Ocr     captcha.OpenAIConfig `json:"ocr"`
	History HistoryConfig        `json:"history"`
	Notify  notify.Config        `json:"notify"`
	// CaptchaDir is where manual mode writes the image, defaults to the state dir.
	CaptchaDir string `json:"captcha_dir"`
}

func defaultConfig() Config {
	return Config{
		Client: mvr.DefaultConfig(),
		History: HistoryConfig{
			Database: configlibsql.Struct{File: "<state>/history.db"},
		},
		CaptchaDir: "<state>",
	}
}

// loadConfig layers the config file (if there is one) over the defaults and
// fills in secrets from the environment.
func loadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(path, defaultConfig())
	if err != nil {
		return Config{}, err
	}
	if config.Ocr.ApiKey == "" {
		config.Ocr.ApiKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Ocr.BaseUrl == "" {
		config.Ocr.BaseUrl = os.Getenv("OPENAI_BASE_URL")
	}
	return config, nil
}
