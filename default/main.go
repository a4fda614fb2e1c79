// Package defaults provides embedded default assets (config and template overrides).
package defaults

import _ "embed"

//go:embed default_config.json
var DefaultConfigJSON []byte

//go:embed default_templates.toml
var DefaultTemplatesTOML string
