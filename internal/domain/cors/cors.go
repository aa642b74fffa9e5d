// Package cors implements the cross-origin policy rule set: an ordered
// list of url-pattern to policy mappings consulted on every request.
package cors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultAllowValue is the Allow header sent for preflight requests on
// paths no rule matches.
const DefaultAllowValue = "HEAD,GET,PUT,POST,PATCH,DELETE,OPTIONS"

// Default policy lists applied when a rule leaves them unspecified.
var (
	DefaultAllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	DefaultAllowHeaders = []string{
		"x-requested-with", "content-type", "accept",
		"origin", "authorization", "x-csrftoken",
	}
)

// RuleConfig is the declarative form of one CORS rule, as it appears in
// configuration.
type RuleConfig struct {
	URLRegex         string   `yaml:"url_regex" mapstructure:"url_regex" validate:"required"`
	AllowOrigin      []string `yaml:"allow_origin" mapstructure:"allow_origin"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	AllowMethods     []string `yaml:"allow_methods" mapstructure:"allow_methods"`
	AllowHeaders     []string `yaml:"allow_headers" mapstructure:"allow_headers"`
}

// Rule is a compiled CORS rule with its response headers precomputed.
// Immutable after construction.
type Rule struct {
	pattern      *regexp.Regexp
	allowMethods []string
	methodSet    map[string]struct{}
	headers      map[string]string
}

// NewRule compiles a rule config. The url regex is anchored at the
// start of the path (regexp match semantics, not full-string).
func NewRule(cfg RuleConfig) (*Rule, error) {
	if cfg.URLRegex == "" {
		return nil, fmt.Errorf("url_regex is expected for CORS rule")
	}
	pattern, err := regexp.Compile(cfg.URLRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid CORS url_regex %q: %w", cfg.URLRegex, err)
	}

	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = DefaultAllowMethods
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = DefaultAllowHeaders
	}

	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[strings.ToUpper(m)] = struct{}{}
	}

	return &Rule{
		pattern:      pattern,
		allowMethods: methods,
		methodSet:    methodSet,
		headers: map[string]string{
			"Access-Control-Allow-Origin":      strings.Join(cfg.AllowOrigin, " "),
			"Access-Control-Allow-Credentials": fmt.Sprintf("%t", cfg.AllowCredentials),
			"Access-Control-Allow-Methods":     strings.Join(methods, ", "),
			"Access-Control-Allow-Headers":     strings.Join(headers, ", "),
		},
	}, nil
}

// Matches reports whether the rule applies to the request path. The
// pattern matches a prefix, mirroring the regex match semantics the
// rule format was defined with.
func (r *Rule) Matches(path string) bool {
	loc := r.pattern.FindStringIndex(path)
	return loc != nil && loc[0] == 0
}

// AllowsMethod reports whether the rule's policy permits the method.
func (r *Rule) AllowsMethod(method string) bool {
	_, ok := r.methodSet[strings.ToUpper(method)]
	return ok
}

// AllowValue returns the preflight Allow header value: the rule's
// methods joined with "," in declared order.
func (r *Rule) AllowValue() string {
	return strings.Join(r.allowMethods, ",")
}

// Headers returns the rule's policy headers. The map is shared and must
// not be mutated by callers.
func (r *Rule) Headers() map[string]string {
	return r.headers
}

// matchCacheCap bounds the path-to-rule memoization. The working set is
// the route table, so the cap is rarely reached; on overflow the cache
// resets rather than tracking recency.
const matchCacheCap = 1024

// RuleSet is the static, process-wide list of CORS rules. Lookups are
// memoized by path hash. Immutable after construction apart from the
// internal cache, which is safe for concurrent use.
type RuleSet struct {
	rules []*Rule

	mu    sync.RWMutex
	cache map[uint64]int // path hash -> rule index, -1 for no match
}

// NewRuleSet compiles the configured rules in declared order.
func NewRuleSet(cfgs []RuleConfig) (*RuleSet, error) {
	rules := make([]*Rule, 0, len(cfgs))
	for i, cfg := range cfgs {
		rule, err := NewRule(cfg)
		if err != nil {
			return nil, fmt.Errorf("cors rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return &RuleSet{
		rules: rules,
		cache: make(map[uint64]int),
	}, nil
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Find returns the rule governing the path, or nil when none matches.
// When several rules match, the LAST one in declared order wins; the
// original rule format allowed overlapping patterns and later rules
// are treated as overrides.
func (rs *RuleSet) Find(path string) *Rule {
	if len(rs.rules) == 0 {
		return nil
	}

	key := xxhash.Sum64String(path)

	rs.mu.RLock()
	idx, ok := rs.cache[key]
	rs.mu.RUnlock()
	if ok {
		if idx < 0 {
			return nil
		}
		return rs.rules[idx]
	}

	idx = -1
	for i, rule := range rs.rules {
		if rule.Matches(path) {
			idx = i
		}
	}

	rs.mu.Lock()
	if len(rs.cache) >= matchCacheCap {
		rs.cache = make(map[uint64]int)
	}
	rs.cache[key] = idx
	rs.mu.Unlock()

	if idx < 0 {
		return nil
	}
	return rs.rules[idx]
}
