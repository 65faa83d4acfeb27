// Package config loads env-tagged structs (github.com/caarlos0/env/v11) with a
// per-type cache, so every component can call Load for its own Config without
// re-parsing the environment.
package config
