package usecase

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/config"
	"repolens/internal/errs"
)

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in   string
		want Target
	}{
		{"https://github.com/acme/widgets", Target{Kind: TargetGitHub, Owner: "acme", Repo: "widgets"}},
		{"https://github.com/acme/widgets.git", Target{Kind: TargetGitHub, Owner: "acme", Repo: "widgets"}},
		{"github.com/acme/widgets/tree/release/v2", Target{Kind: TargetGitHub, Owner: "acme", Repo: "widgets", Ref: "release/v2"}},
		{"acme/widgets", Target{Kind: TargetGitHub, Owner: "acme", Repo: "widgets"}},
		{"acme/widgets@dev", Target{Kind: TargetGitHub, Owner: "acme", Repo: "widgets", Ref: "dev"}},
		{"https://dev.azure.com/contoso/Platform/_git/api", Target{Kind: TargetAzure, Org: "contoso", Project: "Platform", Repo: "api"}},
		{"https://contoso@dev.azure.com/contoso/My%20Project/_git/api", Target{Kind: TargetAzure, Org: "contoso", Project: "My Project", Repo: "api"}},
		{"https://contoso.visualstudio.com/Platform/_git/api", Target{Kind: TargetAzure, Org: "contoso", Project: "Platform", Repo: "api"}},
	}
	for _, tc := range cases {
		got, err := ParseTarget(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseTarget_LocalDirectory(t *testing.T) {
	dir := t.TempDir()
	got, err := ParseTarget(dir)
	require.NoError(t, err)
	assert.Equal(t, TargetLocal, got.Kind)
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, got.Dir)
	assert.Equal(t, abs, got.String())
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, in := range []string{
		"https://gitlab.com/acme/widgets",
		"https://github.com/acme",
		"https://dev.azure.com/contoso/Platform",
		"./definitely/not/here/at/all",
	} {
		_, err := ParseTarget(in)
		require.Error(t, err, in)
		assert.True(t, errs.Is(err, errs.Validation), in)
	}
}

func TestOpenBackend_AzureWithoutPAT(t *testing.T) {
	t.Setenv("AZURE_DEVOPS_PAT", "")
	cfg := config.DefaultConfig()
	_, err := OpenBackend(Target{Kind: TargetAzure, Org: "o", Project: "p", Repo: "r"}, cfg, "test", nil)
	assert.True(t, errs.Is(err, errs.Configuration))
}
