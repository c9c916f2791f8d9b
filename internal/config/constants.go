package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalToolsmith      = "toolsmith"
	luaFieldRegistry        = "registry"
	luaFieldNetwork         = "network"
	luaFieldProbe           = "probe"
	luaFieldPaths           = "paths"
	luaFieldTools           = "tools"
	luaFieldBaseURL         = "base_url"
	luaFieldTimeout         = "timeout"
	luaFieldUseMirrors      = "use_mirrors"
	luaFieldMirrors         = "mirrors"
	luaFieldDownloadTimeout = "download_timeout"
	luaFieldUserAgent       = "user_agent"
	luaFieldConcurrency     = "concurrency"
	luaFieldResourceDir     = "resource_dir"
	luaFieldDataDir         = "data_dir"
	luaFieldCustomPath      = "custom_path"
	luaFieldExtraDirs       = "extra_search_dirs"
	luaFieldVerify          = "verify"
	luaFieldSHA256          = "sha256"
	luaFieldMinisignKey     = "minisign_key"
	luaFieldPGPKeyring      = "pgp_keyring"
	luaFieldSignatureSuffix = "signature_suffix"
)

// Limits
const (
	// MaxConfigSize bounds the config file size
	MaxConfigSize = 1 << 20
	// MaxConcurrency bounds probe.concurrency
	MaxConcurrency = 32
	// DefaultParseTimeout applies when the context has no deadline
	DefaultParseTimeout = 5 * time.Second
)

// Environment variables
const (
	EnvConfig      = "TOOLSMITH_CONFIG"
	EnvResourceDir = "TOOLSMITH_RESOURCE_DIR"
	EnvDataDir     = "TOOLSMITH_DATA_DIR"
)

// FileName is the config file name inside the user config directory
const FileName = "toolsmith.lua"
