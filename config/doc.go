// Package config loads provider credentials and library settings from the
// environment into tagged structs.
//
// Each provider preset ships its own Config struct with env tags; this
// package supplies the loading mechanics on top of caarlos0/env, with an
// optional .env file picked up once via godotenv for local development.
//
//	var cfg oauth2ac.GoogleConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Config-file formats and credential storage beyond the environment are the
// host application's concern.
package config
