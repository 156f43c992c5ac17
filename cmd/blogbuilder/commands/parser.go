package commands

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogbuilder/internal/notify"
	"git.home.luguber.info/inful/blogbuilder/internal/version"
)

// NewParser returns the kong parser for cli. Command output goes to stdout.
func NewParser(cli *CLI, stdout io.Writer, opts ...kong.Option) (*kong.Kong, error) {
	base := []kong.Option{
		kong.Name("blogbuilder"),
		kong.Description("Static blog generator with a live-reloading preview server."),
		kong.UsageOnError(),
		kong.Writers(stdout, os.Stderr),
		kong.Vars{
			"version":     version.String(),
			"history_db":  DefaultHistoryDB,
			"nats_prefix": notify.DefaultSubjectPrefix,
		},
		kong.Bind(&Global{Stdout: stdout}),
	}
	return kong.New(cli, append(base, opts...)...)
}
