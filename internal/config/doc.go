// Package config holds the installer configuration and loads it from
// layered sources.
//
// Precedence, lowest to highest:
//
//  1. Default() values
//  2. a Lua config file (provision.lua), parsed in a sandboxed VM
//  3. PROVISION_* environment variables (ApplyEnv)
//  4. command-line flags, applied by the caller
//
// # Lua schema
//
// The config file assigns a global "provision" table. Every field is optional:
//
//	provision = {
//	    repo = "skyfe79/script-list",
//	    binary = "sl",
//	    name = "script-list",
//	    base_url = "https://github.com",
//	    install_root = "~/.local/share/script-list",
//	    manifest = "package.json",
//	    force = false,
//	    lock_timeout_seconds = 30,
//	    download = {
//	        user_agent = "npm-install-script",
//	        redirect_limit = 5,
//	        retries = 3,
//	        timeout_seconds = 300,
//	    },
//	    locate = {
//	        policy = "fallback", -- or "strict"
//	        published = { "macos-arm64", "linux-x64" },
//	        fallback = "macos-arm64",
//	    },
//	    link = {
//	        enabled = true,
//	        command = { "npm", "prefix", "-g" },
//	    },
//	    verify = {
//	        keyring = "~/.config/script-list/release.asc",
//	        signature_suffix = ".sig",
//	        checksums = "checksums.txt",
//	    },
//	}
//
// A read-only "platform" table describing the host is available while the
// file runs, so values can depend on it:
//
//	provision = {
//	    install_root = platform.when(platform.is_windows, "C:/tools/sl"),
//	}
package config
