package gears

import (
	"encoding/base64"
	"regexp"
	"strings"
	"text/template"

	"github.com/kbukum/gearsclient/errors"
)

// Names the bootstrap script refers to on the remote node.
const (
	BootstrapModule = "gearscodec"
	BuilderSymbol   = "GB"
)

var bootstrapTmpl = template.Must(template.New("bootstrap").Parse(
	"import base64\n" +
		"import {{.Module}}\n" +
		"p = {{.Module}}.loads(base64.b64decode('{{.Payload}}'))\n" +
		"p.createAndRun({{.Builder}})\n"))

var bootstrapRe = regexp.MustCompile(
	`^import base64\n` +
		`import ` + BootstrapModule + `\n` +
		`p = ` + BootstrapModule + `\.loads\(base64\.b64decode\('([A-Za-z0-9+/=]*)'\)\)\n` +
		`p\.createAndRun\(` + BuilderSymbol + `\)$`)

// Bootstrap returns the script that makes the remote node decode payload
// and replay it onto its native builder.
func Bootstrap(payload []byte) string {
	var sb strings.Builder
	// the template only interpolates constants and base64 text
	_ = bootstrapTmpl.Execute(&sb, struct {
		Module, Payload, Builder string
	}{BootstrapModule, base64.StdEncoding.EncodeToString(payload), BuilderSymbol})
	return sb.String()
}

// ParseBootstrap extracts the payload from a script produced by Bootstrap.
func ParseBootstrap(src string) ([]byte, error) {
	m := bootstrapRe.FindStringSubmatch(strings.TrimSpace(src))
	if m == nil {
		return nil, errors.InvalidBootstrap("script does not match the bootstrap form")
	}
	payload, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, errors.InvalidBootstrap("payload is not valid base64").WithCause(err)
	}
	return payload, nil
}
