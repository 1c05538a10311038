package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/skyfe79/provision/internal/platform"
)

// DefaultFileName is the config file looked up next to the manifest.
const DefaultFileName = "provision.lua"

const luaGlobalProvision = "provision"

// Parser reads Lua config files with a platform table injected.
type Parser struct {
	detector platform.Detector
	resolver *platform.Resolver
}

// NewParser creates a parser. A nil detector skips platform injection.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector, resolver: platform.NewResolver()}
}

// ParseError represents a config parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile parses the Lua file at path on top of base. base is not modified.
func (p *Parser) ParseFile(ctx context.Context, path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return p.ParseString(ctx, string(data), base)
}

// ParseString parses Lua code on top of base. base is not modified.
func (p *Parser) ParseString(ctx context.Context, luaCode string, base *Config) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		// An unsupported host still gets raw identifiers; the installer
		// reports the unsupported platform itself.
		key, _ := p.resolver.Resolve(info.OS, info.Arch)
		if err := platform.InjectPlatformTable(L, info, key); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	cfg := base.Clone()
	if err := applyLua(L, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLua copies the fields set in the global provision table onto cfg.
func applyLua(L *lua.LState, cfg *Config) error {
	global := L.GetGlobal(luaGlobalProvision)
	if global.Type() == lua.LTNil {
		return nil
	}
	table, ok := global.(*lua.LTable)
	if !ok {
		return &ParseError{
			Message: "invalid 'provision' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	var errs []error
	str := func(t *lua.LTable, field string, dst *string) {
		switch v := t.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTString:
			*dst = v.String()
		default:
			errs = append(errs, fmt.Errorf("%s: expected string, got %s", field, v.Type()))
		}
	}
	boolean := func(t *lua.LTable, field string, dst *bool) {
		switch v := t.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTBool:
			*dst = bool(v.(lua.LBool))
		default:
			errs = append(errs, fmt.Errorf("%s: expected boolean, got %s", field, v.Type()))
		}
	}
	seconds := func(t *lua.LTable, field string, dst *time.Duration) {
		switch v := t.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTNumber:
			*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
		default:
			errs = append(errs, fmt.Errorf("%s: expected number, got %s", field, v.Type()))
		}
	}
	integer := func(t *lua.LTable, field string, dst *int) {
		switch v := t.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTNumber:
			*dst = int(lua.LVAsNumber(v))
		default:
			errs = append(errs, fmt.Errorf("%s: expected number, got %s", field, v.Type()))
		}
	}

	str(table, "repo", &cfg.Repo)
	str(table, "binary", &cfg.BinaryName)
	str(table, "name", &cfg.DisplayName)
	str(table, "base_url", &cfg.BaseURL)
	str(table, "install_root", &cfg.InstallRoot)
	str(table, "manifest", &cfg.Manifest)
	boolean(table, "force", &cfg.Force)
	seconds(table, "lock_timeout_seconds", &cfg.LockTimeout)

	if download, ok := subTable(table, "download", &errs); ok {
		str(download, "user_agent", &cfg.Download.UserAgent)
		integer(download, "redirect_limit", &cfg.Download.RedirectLimit)
		integer(download, "retries", &cfg.Download.Retries)
		seconds(download, "timeout_seconds", &cfg.Download.Timeout)
	}

	if locate, ok := subTable(table, "locate", &errs); ok {
		var policy string
		str(locate, "policy", &policy)
		if policy != "" {
			cfg.Locate.Policy = Policy(strings.ToLower(policy))
		}
		if published, ok := subTable(locate, "published", &errs); ok {
			keys, err := extractKeys(published)
			if err != nil {
				errs = append(errs, fmt.Errorf("published: %w", err))
			} else {
				cfg.Locate.Published = keys
			}
		}
		var fallback string
		str(locate, "fallback", &fallback)
		if fallback != "" {
			key, err := platform.ParseKey(fallback)
			if err != nil {
				errs = append(errs, fmt.Errorf("fallback: %w", err))
			} else {
				cfg.Locate.Fallback = key
			}
		}
	}

	if link, ok := subTable(table, "link", &errs); ok {
		boolean(link, "enabled", &cfg.Link.Enabled)
		if command, ok := subTable(link, "command", &errs); ok {
			cfg.Link.Command = extractStrings(command)
		}
	}

	if verify, ok := subTable(table, "verify", &errs); ok {
		str(verify, "keyring", &cfg.Verify.Keyring)
		str(verify, "signature_suffix", &cfg.Verify.SignatureSuffix)
		str(verify, "checksums", &cfg.Verify.Checksums)
	}

	if err := errors.Join(errs...); err != nil {
		return &ParseError{
			Message: "invalid config value",
			Detail:  err.Error(),
		}
	}
	return nil
}

// subTable returns t[field] when it is a table. nil values are skipped;
// other types are recorded as errors.
func subTable(t *lua.LTable, field string, errs *[]error) (*lua.LTable, bool) {
	v := t.RawGetString(field)
	switch v.Type() {
	case lua.LTNil:
		return nil, false
	case lua.LTTable:
		return v.(*lua.LTable), true
	default:
		*errs = append(*errs, fmt.Errorf("%s: expected table, got %s", field, v.Type()))
		return nil, false
	}
}

// extractStrings returns the string elements of an array table. nil entries
// left by platform.when are skipped.
func extractStrings(t *lua.LTable) []string {
	var out []string
	t.ForEach(func(_, value lua.LValue) {
		if value.Type() == lua.LTString {
			out = append(out, value.String())
		}
	})
	return out
}

func extractKeys(t *lua.LTable) ([]platform.Key, error) {
	var keys []platform.Key
	for _, s := range extractStrings(t) {
		key, err := platform.ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// FormatError formats a ParseError for user display.
// In verbose mode the raw Lua error is shown in full.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}
