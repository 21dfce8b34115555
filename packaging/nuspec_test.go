package packaging

import (
	"slices"
	"strings"
	"testing"
)

func TestParseNuspec_Complete(t *testing.T) {
	xml := `<?xml version="1.0"?>
<package xmlns="http://schemas.microsoft.com/packaging/2011/08/nuspec.xsd">
  <metadata>
    <id>Utility</id>
    <version>2.3.7</version>
    <title>Utility Library</title>
    <authors>Alice,  Bob</authors>
    <owners>Contoso</owners>
    <requireLicenseAcceptance>true</requireLicenseAcceptance>
    <description>Shared helpers</description>
    <tags>util  helpers</tags>
    <dependencies>
      <dependency id="Legacy" version="1.0" />
      <group targetFramework="net40">
        <dependency id="Newtonsoft.Json" version="[4.5, )" />
        <dependency id="legacy" />
      </group>
    </dependencies>
  </metadata>
  <files>
    <file src="bin\Utility.dll" target="lib" />
  </files>
</package>`

	nuspec, err := ParseNuspec(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("ParseNuspec() error = %v", err)
	}

	if nuspec.Metadata.ID != "Utility" || nuspec.Metadata.Title != "Utility Library" {
		t.Errorf("metadata = %+v", nuspec.Metadata)
	}
	if !nuspec.Metadata.RequireLicenseAcceptance {
		t.Error("RequireLicenseAcceptance = false, want true")
	}
	if got := nuspec.GetAuthors(); !slices.Equal(got, []string{"Alice", "Bob"}) {
		t.Errorf("GetAuthors() = %v", got)
	}
	if got := nuspec.GetOwners(); !slices.Equal(got, []string{"Contoso"}) {
		t.Errorf("GetOwners() = %v", got)
	}
	if got := nuspec.GetTags(); !slices.Equal(got, []string{"util", "helpers"}) {
		t.Errorf("GetTags() = %v", got)
	}
	if got := nuspec.GetDependencyIDs(); !slices.Equal(got, []string{"Legacy", "Newtonsoft.Json"}) {
		t.Errorf("GetDependencyIDs() = %v", got)
	}
	if len(nuspec.Files) != 1 || nuspec.Files[0].Target != "lib" {
		t.Errorf("Files = %+v", nuspec.Files)
	}
}

func TestParseNuspec_InvalidXML(t *testing.T) {
	if _, err := ParseNuspec(strings.NewReader("<package><metadata>")); err == nil {
		t.Error("ParseNuspec() expected error for truncated XML")
	}
}

func TestGetParsedIdentity(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		version string
		wantErr bool
	}{
		{"valid", "Foo", "1.0.0", false},
		{"assembly version", "Foo", "1.0.0.0", false},
		{"missing id", "  ", "1.0.0", true},
		{"bad version", "Foo", "one", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Nuspec{Metadata: NuspecMetadata{ID: tt.id, Version: tt.version}}
			_, err := n.GetParsedIdentity()
			if (err != nil) != tt.wantErr {
				t.Errorf("GetParsedIdentity() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDependencyIDs_NoDependencies(t *testing.T) {
	n := &Nuspec{}
	if got := n.GetDependencyIDs(); len(got) != 0 {
		t.Errorf("GetDependencyIDs() = %v, want empty", got)
	}
}
