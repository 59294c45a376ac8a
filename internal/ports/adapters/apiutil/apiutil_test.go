package apiutil

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		policy       BaseURLPolicy
		baseURL      string
		allowedHosts []string
		wantErr      bool
	}{
		{
			name:   "openrouter default when empty",
			policy: OpenRouter,
		},
		{
			name:    "default api host with https",
			policy:  OpenRouter,
			baseURL: "https://api.openrouter.ai/",
		},
		{
			name:    "elevenlabs default host",
			policy:  ElevenLabs,
			baseURL: "https://api.elevenlabs.io",
		},
		{
			name:    "reject non-absolute URL",
			policy:  OpenRouter,
			baseURL: "openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject http",
			policy:  ElevenLabs,
			baseURL: "http://api.elevenlabs.io",
			wantErr: true,
		},
		{
			name:    "reject unknown host by default",
			policy:  OpenRouter,
			baseURL: "https://evil.example",
			wantErr: true,
		},
		{
			name:    "hosts are per policy",
			policy:  ElevenLabs,
			baseURL: "https://openrouter.ai",
			wantErr: true,
		},
		{
			name:         "allow configured host",
			policy:       OpenRouter,
			baseURL:      "https://proxy.internal:8443",
			allowedHosts: []string{"https://Proxy.Internal:8443/"},
		},
		{
			name:         "configured hosts replace defaults",
			policy:       OpenRouter,
			baseURL:      "https://openrouter.ai",
			allowedHosts: []string{"proxy.internal"},
			wantErr:      true,
		},
		{
			name:    "reject userinfo",
			policy:  OpenRouter,
			baseURL: "https://user:pw@openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject query",
			policy:  OpenRouter,
			baseURL: "https://openrouter.ai?x=1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.baseURL, tt.allowedHosts)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !strings.Contains(err.Error(), tt.policy.Name) {
				t.Fatalf("error should name the setting: %v", err)
			}
		})
	}
}

func TestAllowedHosts_DefaultWhenBlank(t *testing.T) {
	out := OpenRouter.allowedHosts([]string{" ", "https://", "http://"})
	if len(out) != len(OpenRouter.DefaultHosts) {
		t.Fatalf("expected default allowed hosts, got %v", out)
	}
}

func TestRedactSecrets(t *testing.T) {
	in := "key sk-live-123 rejected; Authorization: Bearer abc.def\nxi-api-key: el-999"
	out := RedactSecrets(in, "sk-live-123")
	for _, leaked := range []string{"sk-live-123", "abc.def", "el-999"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("secret %q leaked: %q", leaked, out)
		}
	}
	if RedactSecrets("", "x") != "" {
		t.Fatalf("empty input must stay empty")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ok", 10); got != "ok" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"cuts":[]}`, want: `{"cuts":[]}`},
		{in: "```json\n{\"cuts\":[]}\n```", want: `{"cuts":[]}`},
		{in: "Here is the plan: {\"a\":{\"b\":1}} thanks", want: `{"a":{"b":1}}`},
	}
	for _, tt := range tests {
		got, err := ExtractJSONObject(tt.in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("got %q want %q", got, tt.want)
		}
	}
	for _, bad := range []string{"", "   ", "no json here", "} {"} {
		if _, err := ExtractJSONObject(bad); !errors.Is(err, ErrNoJSONObject) {
			t.Fatalf("expected ErrNoJSONObject for %q, got %v", bad, err)
		}
	}
}
