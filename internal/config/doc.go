// Package config loads the toolsmith configuration from a Lua file.
//
// # Overview
//
// The configuration is a single global table evaluated in a sandboxed
// gopher-lua VM. The detected platform is injected as a read-only
// "platform" table, so settings can depend on the host:
//
//	toolsmith = {
//	  registry = { base_url = "https://ungh.cc/repos", timeout = 30 },
//	  network = {
//	    use_mirrors = true,
//	    mirrors = { "https://hub.gitmirror.com/", "" },
//	    download_timeout = 600,
//	  },
//	  probe = { timeout = 10, concurrency = 4 },
//	  tools = {
//	    pandoc = {
//	      extra_search_dirs = { platform.is_linux and "/opt/pandoc/bin" or nil },
//	    },
//	    typst = {
//	      verify = { minisign_key = "RWS..." },
//	    },
//	  },
//	}
//
// Every field is optional. Missing fields keep the values from Default.
// Tool keys accept either the program name or the kind name.
//
// # Security Model
//
// User Lua code runs without os, io, debug, and the code loading functions
// (require, dofile, loadfile, load, loadstring). Config files are limited
// to MaxConfigSize and evaluation is cancelled after DefaultParseTimeout
// unless the caller's context carries its own deadline.
//
// # Locations
//
// Load reads, in order of preference, the explicit path, $TOOLSMITH_CONFIG,
// and <user config dir>/toolsmith/toolsmith.lua. The managed roots come from
// $TOOLSMITH_RESOURCE_DIR and $TOOLSMITH_DATA_DIR when set.
//
// # Error Types
//
// ParseError carries a user-facing message and the raw Lua detail;
// FormatError chooses between them. ValidationError names the offending
// field.
package config
