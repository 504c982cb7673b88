// Package config loads the kanalyze configuration file (YAML, or a flat
// key: value file — viper handles both the same way) into a typed Config
// struct, validated with go-playground/validator tags.
//
// Components that only need a single value — the distilled notion of a
// "Config loader" that simply maps a key to a string — can use GetString
// instead of threading the typed struct through. Load and LoadSource each
// read the file through their own viper instance; LoadSource applies none
// of Load's defaults and no validation.
package config
