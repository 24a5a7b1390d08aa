package main

import (
	"os"

	"github.com/orcaust/orcaust/internal/app"
	log "github.com/sirupsen/logrus"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
