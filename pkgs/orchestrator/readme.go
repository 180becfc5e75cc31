package orchestrator

import (
	"strings"
	"text/template"
)

// descriptorTemplate is the fixed descriptor.mod / <name>.mod body (spec
// §6's patch directory layout), grounded on
// original_source/src/core/patch_generator.py's _generate_descriptor /
// _generate_mod_file, which share the same body and differ only by the
// trailing path= line for the launcher-facing .mod file.
const descriptorTemplate = `version="1.0.0"
tags={
	"Compatibility"
	"Fixes"
}
name="{{.Name}}"
supported_version="{{.SupportedVersion}}"
{{if .Path}}path="{{.Path}}"
{{end}}`

type descriptorData struct {
	Name             string
	SupportedVersion string
	Path             string
}

// GenerateDescriptor renders <output>/descriptor.mod.
func GenerateDescriptor(name, supportedVersion string) string {
	return renderDescriptor(descriptorData{Name: name, SupportedVersion: supportedVersion})
}

// GenerateModFile renders the launcher-facing <safe_name>.mod alongside
// the output directory, identical to descriptor.mod plus a path= line.
func GenerateModFile(name, supportedVersion, outputDirName string) string {
	return renderDescriptor(descriptorData{Name: name, SupportedVersion: supportedVersion, Path: "mod/" + outputDirName})
}

func renderDescriptor(data descriptorData) string {
	tmpl := template.Must(template.New("descriptor").Parse(descriptorTemplate))
	var sb strings.Builder
	_ = tmpl.Execute(&sb, data)
	return sb.String()
}

// SafeModName mirrors patch_generator.py's safe_name derivation for the
// launcher .mod filename: spaces and plus signs become underscores.
func SafeModName(name string) string {
	r := strings.NewReplacer(" ", "_", "+", "_")
	return r.Replace(name)
}

const readmeTemplate = `# {{.Name}}
Auto-generated compatibility patch

## Statistics
- Merged files: {{.Stats.Merged}}
- Copied files: {{.Stats.Copied}}
- Skipped files: {{.Stats.Skipped}}
- Failed: {{.Stats.Failed}}
{{if .Stats.Errors}}
## Errors
{{range .Stats.Errors}}- {{.}}
{{end}}{{end}}{{if .Stats.Warnings}}
## Warnings
{{range .Stats.Warnings}}- {{.}}
{{end}}{{end}}
## Load Order
{{range $i, $mod := .Order}}{{inc $i}}. {{$mod}}
{{end}}
Place this patch LAST in your mod load order, after every mod listed above.

## Installation
1. Copy this folder to your game's mod directory.
2. Copy the accompanying .mod file to the same directory.
3. Enable it in the launcher after all source mods.
`

type readmeData struct {
	Name  string
	Stats Stats
	Order []string
}

// WriteReadme renders the <output>/README.md content: statistics plus
// load-order guidance (spec §6 names README.md in the patch layout but
// leaves its content unspecified; grounded on
// original_source/src/core/patch_generator.py's _generate_readme, which
// emits the same statistics-then-load-order shape). It is a pure render —
// the caller is responsible for writing the returned string to disk.
func WriteReadme(patchName string, stats Stats, order []string) string {
	funcs := template.FuncMap{"inc": func(i int) int { return i + 1 }}
	tmpl := template.Must(template.New("readme").Funcs(funcs).Parse(readmeTemplate))
	var sb strings.Builder
	_ = tmpl.Execute(&sb, readmeData{Name: patchName, Stats: stats, Order: order})
	return sb.String()
}
