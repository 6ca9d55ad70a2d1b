package main

import (
	"flag"
	"log"

	"github.com/Yashdhankecha/Milkat-post-sub001/internal/app"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (defaults to $CONFIG_PATH or config/config.yml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatalf("identitysvc: %v", err)
	}
}
