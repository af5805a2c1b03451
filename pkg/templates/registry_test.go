package templates

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_EmbeddedPrompts(t *testing.T) {
	reg := Get()

	ids := reg.List()
	require.NotEmpty(t, ids)

	for _, id := range []string{
		"agents/router",
		"agents/create_plan",
		"agents/task_executor",
		"agents/get_info",
		"agents/no_action",
	} {
		tmpl, err := reg.GetTemplate(id)
		require.NoError(t, err, "template %s should be embedded", id)
		assert.NotEmpty(t, tmpl.Content)
	}
}

func TestRegistry_RenderRouterPrompt(t *testing.T) {
	reg := Get()

	out, err := reg.Render("agents/router", map[string]any{
		"Routes": []map[string]string{
			{"Name": "create_plan", "Description": "builds plans"},
			{"Name": "no_action", "Description": "small talk"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `"create_plan": builds plans`)
	assert.Contains(t, out, `"no_action": small talk`)
	assert.Contains(t, out, `"confidence"`)
}

func TestRegistry_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"greeting.tmpl": &fstest.MapFile{Data: []byte("Hello {{.Name}}")},
	}

	reg, err := NewRegistryFromFS(fsys)
	require.NoError(t, err)

	out, err := reg.Render("greeting", map[string]string{"Name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)

	_, err = reg.GetTemplate("missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
}
