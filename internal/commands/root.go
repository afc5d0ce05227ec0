package commands

import (
	"os"

	"github.com/deliverykit/calsync/internal/app"
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
	logLevel   string
)

var RootCmd = &cobra.Command{
	Use:           "calsync",
	Short:         "Delivery calendar and subscription provider sync",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml), env vars take precedence")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded if it exists")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "One of debug, info, warn, error")
}

func loadEnv() error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	return errors.Wrapf(godotenv.Load(envFile), "failed to load %s", envFile)
}

func newApp() (*app.App, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}

	log := logutil.NewStderrLog("calsync")
	log.SetLevel(logutil.ParseLevel(logLevel, logutil.LogLevelInfo))

	var cfg config.Config = config.NewViperConfig(log, nil)
	if configFile != "" {
		fileCfg, err := config.NewViperConfigFromFile(log, configFile)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	return app.NewApp(app.SetLog(log), app.SetConfig(cfg)), nil
}
