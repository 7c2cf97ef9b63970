package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCompilation_Assets(t *testing.T) {
	c := domain.NewCompilation("app", fixedTime)

	c.EmitAsset(&domain.Asset{Name: "b.js", Content: []byte("b")})
	c.EmitAsset(&domain.Asset{Name: "a.js", Content: []byte("aa")})
	c.EmitAsset(&domain.Asset{Name: "b.js", Content: []byte("bbb")})

	assets := c.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, "b.js", assets[0].Name, "replacing keeps the first insertion position")
	assert.Equal(t, 3, assets[0].Size())
	assert.Equal(t, "a.js", assets[1].Name)

	c.DeleteAsset("b.js")
	c.DeleteAsset("missing.js")
	_, ok := c.Asset("b.js")
	assert.False(t, ok)
	assert.Len(t, c.Assets(), 1)
}

func TestCompilation_AddDiagnostic(t *testing.T) {
	c := domain.NewCompilation("app", fixedTime)

	c.AddDiagnostic(domain.NewMessage(domain.CodeCompilationReport, "1 asset"))
	c.AddDiagnostic(domain.NewMessage(domain.CodeWaitTimeout, "gave up"))
	c.AddDiagnostic(domain.NewMessage(domain.CodeReserved, "reserved"))
	assert.False(t, c.HasErrors())

	c.AddDiagnostic(domain.NewMessage(domain.CodeAssetFailed, "bad"))
	assert.True(t, c.HasErrors())

	assert.Len(t, c.Infos(), 1)
	assert.Len(t, c.Warnings(), 2, "reserved codes are kept as warnings")
	assert.Len(t, c.Errors(), 1)

	errs := c.Errors()
	errs[0].Text = "changed"
	assert.Equal(t, "bad", c.Errors()[0].Text, "lists are returned as copies")
}
