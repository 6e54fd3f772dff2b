package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extraRules = `
dangerous:
  - name: terraform
    args: '(^|\s)destroy(\s|$)'
    category: data_loss
    reason: infrastructure teardown
semi_dangerous:
  - pattern: '\bdocker\s+system\s+prune\b'
    impact: Removes unused containers and images
whitelist:
  - htop
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoadRules_ExtendsDefaults(t *testing.T) {
	rs, err := LoadRules(writeRules(t, extraRules))
	require.NoError(t, err)

	c := NewClassifier(&SecurityPolicy{SafeMode: true, DangerousCheck: true}, rs)

	a := c.Assess("terraform destroy -auto-approve")
	assert.Equal(t, LevelPotentiallyDangerous, a.Level)
	assert.Contains(t, a.PotentialImpact, ImpactDataLoss)

	assert.Equal(t, LevelNotInWhitelist, c.Assess("terraform plan").Level)
	assert.Equal(t, LevelSemiDangerous, c.Assess("docker system prune -a").Level)
	assert.Equal(t, LevelSafe, c.Assess("htop").Level)

	// Defaults are still present.
	assert.Equal(t, LevelPotentiallyDangerous, c.Assess("rm -rf /").Level)
	assert.Equal(t, LevelSafe, c.Assess("ls").Level)
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "dangerous: [unclosed"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "semi_dangerous:\n  - pattern: '(['\n    impact: x\n"))
	assert.Error(t, err)

	_, err = LoadRules(writeRules(t, "dangerous:\n  - category: power\n"))
	assert.Error(t, err)
}

func TestSecurityPolicy_Rules(t *testing.T) {
	rs, err := DefaultPolicy().Rules()
	require.NoError(t, err)
	assert.True(t, rs.Whitelisted("ls"))
	assert.False(t, rs.Whitelisted("rm"))

	p := DefaultPolicy()
	p.RulesFile = writeRules(t, extraRules)
	rs, err = p.Rules()
	require.NoError(t, err)
	assert.True(t, rs.Whitelisted("htop"))
}
