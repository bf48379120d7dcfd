// Package config reads and writes the otc configuration file (~/.otc/
// config.yaml) via viper, with OTC_* environment overrides. The update
// engine's configuration is assembled here once at startup and handed over
// as an explicit value; nothing else in the program reads viper for it.
package config
