package main

import (
	"errors"

	"github.com/spf13/viper"
)

// loadConfig reads poseedit.cfg.json from the working directory and sets
// default values. A missing config file is fine; defaults apply.
func loadConfig() error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("debug", false)

	viper.SetDefault("window.title", "Pose Editor")
	viper.SetDefault("window.width", 1280)
	viper.SetDefault("window.height", 720)

	viper.SetDefault("history.max", 50)
	viper.SetDefault("formats.dir", "./formats")
	viper.SetDefault("document.path", "./poses.json")

	viper.SetConfigName("poseedit.cfg.json")
	viper.AddConfigPath(".")
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}
