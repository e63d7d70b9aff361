// Package config loads service configuration with Viper.
//
// A service declares one struct embedding ServiceConfig and passes it to
// LoadConfig, which merges defaults, a YAML file, the environment and an
// optional .env file before unmarshalling.
package config
