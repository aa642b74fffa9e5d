package cors

import (
	"testing"
)

func TestRuleHeaders(t *testing.T) {
	rule, err := NewRule(RuleConfig{
		URLRegex:         "/api/",
		AllowOrigin:      []string{"https://a.example", "https://b.example"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
	})
	if err != nil {
		t.Fatalf("NewRule() error = %v", err)
	}

	headers := rule.Headers()
	tests := []struct {
		header string
		want   string
	}{
		{"Access-Control-Allow-Origin", "https://a.example https://b.example"},
		{"Access-Control-Allow-Credentials", "true"},
		{"Access-Control-Allow-Methods", "GET, OPTIONS"},
		{"Access-Control-Allow-Headers", "x-requested-with, content-type, accept, origin, authorization, x-csrftoken"},
	}
	for _, tt := range tests {
		if got := headers[tt.header]; got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}

	if got := rule.AllowValue(); got != "GET,OPTIONS" {
		t.Errorf("AllowValue() = %q, want %q", got, "GET,OPTIONS")
	}
}

func TestRuleMethodCheck(t *testing.T) {
	rule, err := NewRule(RuleConfig{URLRegex: "/api/", AllowMethods: []string{"GET", "OPTIONS"}})
	if err != nil {
		t.Fatalf("NewRule() error = %v", err)
	}

	if !rule.AllowsMethod("GET") || !rule.AllowsMethod("get") {
		t.Error("AllowsMethod(GET) = false")
	}
	if rule.AllowsMethod("POST") {
		t.Error("AllowsMethod(POST) = true for GET/OPTIONS rule")
	}
}

func TestRuleMatchesAnchorsAtStart(t *testing.T) {
	rule, err := NewRule(RuleConfig{URLRegex: "/api/admin"})
	if err != nil {
		t.Fatalf("NewRule() error = %v", err)
	}

	if !rule.Matches("/api/admin/users") {
		t.Error("prefix match failed")
	}
	if rule.Matches("/public/api/admin") {
		t.Error("mid-path match must not count")
	}
}

func TestNewRuleRejectsInvalidRegex(t *testing.T) {
	if _, err := NewRule(RuleConfig{URLRegex: "("}); err == nil {
		t.Error("NewRule() accepted invalid regex")
	}
	if _, err := NewRule(RuleConfig{}); err == nil {
		t.Error("NewRule() accepted empty url_regex")
	}
}

func TestFindLastMatchWins(t *testing.T) {
	rs, err := NewRuleSet([]RuleConfig{
		{URLRegex: "/api/", AllowOrigin: []string{"https://broad.example"}},
		{URLRegex: "/api/admin", AllowOrigin: []string{"https://admin.example"}},
	})
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}

	rule := rs.Find("/api/admin/users")
	if rule == nil {
		t.Fatal("Find() = nil for matching path")
	}
	if got := rule.Headers()["Access-Control-Allow-Origin"]; got != "https://admin.example" {
		t.Errorf("last matching rule must win, got origin %q", got)
	}

	if rs.Find("/static/logo.png") != nil {
		t.Error("Find() matched a path outside all rules")
	}
}

func TestFindCachesResults(t *testing.T) {
	rs, err := NewRuleSet([]RuleConfig{{URLRegex: "/api/"}})
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}

	first := rs.Find("/api/things")
	second := rs.Find("/api/things")
	if first != second {
		t.Error("repeated Find() must return the same rule")
	}
	miss := rs.Find("/other")
	if miss != nil {
		t.Error("Find() = rule for non-matching path")
	}
	// Cached negative result must stay negative.
	if rs.Find("/other") != nil {
		t.Error("cached negative result flipped")
	}
}

func TestFindConcurrent(t *testing.T) {
	rs, err := NewRuleSet([]RuleConfig{
		{URLRegex: "/api/"},
		{URLRegex: "/files/"},
	})
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			paths := []string{"/api/a", "/files/b", "/none", "/api/c"}
			for j := 0; j < 500; j++ {
				rs.Find(paths[(n+j)%len(paths)])
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
