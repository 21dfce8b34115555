package msbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyProject = "\xEF\xBB\xBF" + `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="4.0" DefaultTargets="Build" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <!-- keep me -->
  <PropertyGroup>
    <AssemblyName>Contoso.App</AssemblyName>
  </PropertyGroup>
  <ItemGroup>
    <Reference Include="System" />
    <Reference Include="Foo">
      <HintPath>..\lib\Foo.dll</HintPath>
    </Reference>
  </ItemGroup>
</Project>
`

func TestParseDocument_RoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(legacyProject))
	require.NoError(t, err)

	assert.True(t, doc.BOM)
	assert.Equal(t, "Project", doc.Root.Tag())
	assert.Equal(t, legacyProject, string(doc.Bytes()))
}

func TestParseDocument_EscapesAndCRLF(t *testing.T) {
	input := "<Project>\r\n  <PropertyGroup Condition=\" '$(A)' == 'x&amp;y' \">\r\n    <Define>A&lt;B</Define>\r\n  </PropertyGroup>\r\n</Project>"

	doc, err := ParseDocument([]byte(input))
	require.NoError(t, err)

	group := doc.Root.FindElement("PropertyGroup")
	require.NotNil(t, group)
	cond, ok := group.GetAttr("condition")
	require.True(t, ok)
	assert.Equal(t, " '$(A)' == 'x&y' ", cond)
	assert.Equal(t, "A<B", group.FindElement("Define").Text())

	assert.False(t, doc.BOM)
	assert.Equal(t, input, string(doc.Bytes()))

	group.AppendChild(NewElement("Extra"))
	assert.Contains(t, string(doc.Bytes()), "</Define>\r\n    <Extra />\r\n  </PropertyGroup>")
}

func TestParseDocument_UTF16(t *testing.T) {
	text := `<?xml version="1.0" encoding="utf-16"?>` + "\n<Project><ItemGroup /></Project>"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), 0)
	}

	doc, err := ParseDocument(data)
	require.NoError(t, err)

	out := string(doc.Bytes())
	assert.Equal(t, "\xEF\xBB\xBF"+`<?xml version="1.0" encoding="utf-8"?>`+"\n<Project><ItemGroup /></Project>", out)
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unclosed", "<Project><ItemGroup></Project>"},
		{"two roots", "<Project /><Project />"},
		{"garbage", "not xml at all <"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestElement_AppendAndRemove(t *testing.T) {
	doc, err := ParseDocument([]byte(legacyProject))
	require.NoError(t, err)

	group := doc.Root.Elements()[1]
	require.Equal(t, "ItemGroup", group.Tag())

	ref := NewElement("Reference")
	ref.SetAttr("Include", "Bar")
	group.AppendChild(ref)
	hint := NewElement("HintPath")
	ref.AppendChild(hint)
	hint.SetText(`packages\Bar.1.0\lib\Bar.dll`)

	out := string(doc.Bytes())
	assert.Contains(t, out, "    </Reference>\n    <Reference Include=\"Bar\">\n      <HintPath>packages\\Bar.1.0\\lib\\Bar.dll</HintPath>\n    </Reference>\n  </ItemGroup>")

	assert.True(t, group.RemoveChild(ref))
	assert.Equal(t, legacyProject, string(doc.Bytes()))
	assert.False(t, group.RemoveChild(ref))
}

func TestElement_AppendToEmpty(t *testing.T) {
	doc, err := ParseDocument([]byte("<Project>\n  <ItemGroup />\n</Project>"))
	require.NoError(t, err)

	group := doc.Root.FindElement("ItemGroup")
	group.AppendChild(NewElement("None"))

	assert.Equal(t, "<Project>\n  <ItemGroup>\n    <None />\n  </ItemGroup>\n</Project>", string(doc.Bytes()))
}
