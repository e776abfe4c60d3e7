// Package config loads client configuration with Viper.
//
// A YAML file is read first, then a .env file (via godotenv) and finally the
// process environment. Environment variables carrying the loader's prefix
// override file values using underscore-separated paths:
//
//	GEARS_REDIS_ADDR=cache:6379   ->  redis.addr
//	GEARS_DEFAULT_ARG=user:*      ->  default_arg
//
// # Usage
//
//	var cfg gears.Config
//	err := config.LoadConfig("gears", &cfg, config.WithConfigFile("gears.yml"))
package config
