package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
)

func noopHandler(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return nil, nil
}

func noopResourceHandler(_ context.Context, _ string, _ map[string]string) (interface{}, error) {
	return nil, nil
}

func TestToolRegistration(t *testing.T) {
	reg := New()

	t.Run("RegisterAndLookup", func(t *testing.T) {
		err := reg.RegisterTool(ToolDescriptor{Name: "echo", Handler: noopHandler})
		require.NoError(t, err)

		tool, ok := reg.Tool("echo")
		require.True(t, ok)
		assert.Equal(t, "echo", tool.Name)
	})

	t.Run("DuplicateFails", func(t *testing.T) {
		err := reg.RegisterTool(ToolDescriptor{Name: "echo", Handler: noopHandler})
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
		assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryConflict))
	})

	t.Run("UnknownLookup", func(t *testing.T) {
		_, ok := reg.Tool("absent")
		assert.False(t, ok)
	})

	t.Run("Unregister", func(t *testing.T) {
		require.NoError(t, reg.UnregisterTool("echo"))
		_, ok := reg.Tool("echo")
		assert.False(t, ok)

		err := reg.UnregisterTool("echo")
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
	})
}

func TestListOrderAndPagination(t *testing.T) {
	reg := New()
	for i := 0; i < 75; i++ {
		require.NoError(t, reg.RegisterTool(ToolDescriptor{
			Name:    fmt.Sprintf("tool-%03d", i),
			Handler: noopHandler,
		}))
	}

	first, cursor, err := reg.ListTools("")
	require.NoError(t, err)
	require.Len(t, first, 50)
	assert.Equal(t, "tool-000", first[0].Name)
	require.NotEmpty(t, cursor)

	second, cursor, err := reg.ListTools(cursor)
	require.NoError(t, err)
	assert.Len(t, second, 25)
	assert.Equal(t, "tool-050", second[0].Name)
	assert.Empty(t, cursor)

	_, _, err = reg.ListTools("not a cursor")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
}

func TestResourceRegistration(t *testing.T) {
	reg := New()

	require.NoError(t, reg.RegisterResource(ResourceDescriptor{
		URI:          "config://app",
		Subscribable: true,
		Handler:      noopResourceHandler,
	}))

	res, ok := reg.Resource("config://app")
	require.True(t, ok)
	assert.True(t, res.Subscribable)

	err := reg.RegisterResource(ResourceDescriptor{URI: "config://app", Handler: noopResourceHandler})
	assert.Error(t, err)

	resources, _, err := reg.ListResources("")
	require.NoError(t, err)
	assert.Len(t, resources, 1)
}

func TestResourceTemplates(t *testing.T) {
	reg := New()

	t.Run("MalformedTemplateRejected", func(t *testing.T) {
		err := reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "file://{}",
			Handler:     noopResourceHandler,
		})
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidParams))
	})

	t.Run("MatchBindsParams", func(t *testing.T) {
		require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "logs://{date}/{level}",
			Handler:     noopResourceHandler,
		}))

		tmpl, bindings, ok := reg.MatchResourceTemplate("logs://2026-08-30/error")
		require.True(t, ok)
		assert.Equal(t, "logs://{date}/{level}", tmpl.URITemplate)
		assert.Equal(t, map[string]string{"date": "2026-08-30", "level": "error"}, bindings)
	})

	t.Run("NoMatch", func(t *testing.T) {
		_, _, ok := reg.MatchResourceTemplate("other://thing")
		assert.False(t, ok)
	})

	t.Run("FewestPlaceholdersWins", func(t *testing.T) {
		require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "a/{x}/{y}",
			Handler:     noopResourceHandler,
		}))
		require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "a/{x}/b",
			Handler:     noopResourceHandler,
		}))

		tmpl, bindings, ok := reg.MatchResourceTemplate("a/1/b")
		require.True(t, ok)
		assert.Equal(t, "a/{x}/b", tmpl.URITemplate)
		assert.Equal(t, map[string]string{"x": "1"}, bindings)
	})

	t.Run("EarliestRegisteredBreaksTies", func(t *testing.T) {
		require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "b/{first}",
			Handler:     noopResourceHandler,
		}))
		require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
			URITemplate: "b/{second}",
			Handler:     noopResourceHandler,
		}))

		tmpl, _, ok := reg.MatchResourceTemplate("b/v")
		require.True(t, ok)
		assert.Equal(t, "b/{first}", tmpl.URITemplate)
	})

	t.Run("Unregister", func(t *testing.T) {
		require.NoError(t, reg.UnregisterResourceTemplate("b/{second}"))
		assert.Error(t, reg.UnregisterResourceTemplate("b/{second}"))
	})
}

func TestPromptTemplates(t *testing.T) {
	reg := New()

	require.NoError(t, reg.RegisterPrompt(PromptDescriptor{Name: "summary", Handler: noopHandler}))
	require.NoError(t, reg.RegisterPromptTemplate(PromptTemplateDescriptor{
		NameTemplate: "review/{style}",
		Params:       []invoker.ParamSpec{{Name: "code", Required: true}},
		Handler:      noopHandler,
	}))

	t.Run("ExactLookup", func(t *testing.T) {
		prompt, ok := reg.Prompt("summary")
		require.True(t, ok)
		assert.Equal(t, "summary", prompt.Name)
	})

	t.Run("TemplateMatch", func(t *testing.T) {
		tmpl, bindings, ok := reg.MatchPromptTemplate("review/strict")
		require.True(t, ok)
		assert.Equal(t, "review/{style}", tmpl.NameTemplate)
		assert.Equal(t, "strict", bindings["style"])
	})

	t.Run("ExactNameIsNotTemplate", func(t *testing.T) {
		_, _, ok := reg.MatchPromptTemplate("summary")
		assert.False(t, ok)
	})
}

func TestHasCapabilities(t *testing.T) {
	reg := New()
	assert.False(t, reg.HasTools())
	assert.False(t, reg.HasResources())
	assert.False(t, reg.HasPrompts())

	require.NoError(t, reg.RegisterTool(ToolDescriptor{Name: "t", Handler: noopHandler}))
	assert.True(t, reg.HasTools())

	// A lone template is enough to enable the capability
	require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
		URITemplate: "file://{path}",
		Handler:     noopResourceHandler,
	}))
	assert.True(t, reg.HasResources())

	require.NoError(t, reg.RegisterPromptTemplate(PromptTemplateDescriptor{
		NameTemplate: "review/{style}",
		Handler:      noopHandler,
	}))
	assert.True(t, reg.HasPrompts())

	// Dynamic unregistration flips the capability back off
	require.NoError(t, reg.UnregisterTool("t"))
	assert.False(t, reg.HasTools())
}

func TestChangeListener(t *testing.T) {
	var changes []Kind
	reg := New(WithChangeListener(func(kind Kind) {
		changes = append(changes, kind)
	}))

	require.NoError(t, reg.RegisterTool(ToolDescriptor{Name: "t", Handler: noopHandler}))
	require.NoError(t, reg.RegisterResource(ResourceDescriptor{URI: "u", Handler: noopResourceHandler}))
	require.NoError(t, reg.RegisterResourceTemplate(ResourceTemplateDescriptor{
		URITemplate: "file://{path}", Handler: noopResourceHandler}))
	require.NoError(t, reg.RegisterPrompt(PromptDescriptor{Name: "p", Handler: noopHandler}))
	require.NoError(t, reg.UnregisterTool("t"))

	// Template mutations report the resource kind so listeners map them to
	// a resources list change
	assert.Equal(t, []Kind{KindTool, KindResource, KindResource, KindPrompt, KindTool}, changes)
}

func TestChangeListenerNotCalledOnFailure(t *testing.T) {
	calls := 0
	reg := New(WithChangeListener(func(Kind) { calls++ }))

	require.NoError(t, reg.RegisterTool(ToolDescriptor{Name: "t", Handler: noopHandler}))
	assert.Error(t, reg.RegisterTool(ToolDescriptor{Name: "t", Handler: noopHandler}))
	assert.Error(t, reg.UnregisterTool("absent"))
	assert.Equal(t, 1, calls)
}

func TestCount(t *testing.T) {
	reg := New()
	require.NoError(t, reg.RegisterTool(ToolDescriptor{Name: "a", Handler: noopHandler}))
	require.NoError(t, reg.RegisterTool(ToolDescriptor{Name: "b", Handler: noopHandler}))

	assert.Equal(t, 2, reg.Count(KindTool))
	assert.Equal(t, 0, reg.Count(KindPrompt))
	assert.Equal(t, 0, reg.Count(Kind("bogus")))
}
