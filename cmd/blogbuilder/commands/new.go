package commands

import (
	"fmt"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/blogbuilder/internal/scaffold"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Path    string `arg:"" help:"Directory to create the site in."`
	Title   string `default:"My Blog" help:"Site title."`
	BaseURL string `name:"base-url" default:"http://localhost:3000" help:"Absolute base URL of the published site."`
	Force   bool   `help:"Overwrite existing files."`
}

func (n *NewCmd) Run(g *Global) error {
	created, err := scaffold.Create(scaffold.Options{
		Dir:     n.Path,
		Title:   n.Title,
		BaseURL: n.BaseURL,
		Force:   n.Force,
	})
	if err != nil {
		return err
	}

	out := g.Stdout
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(out, "Created site in %s\n", n.Path)
	for _, name := range created {
		_, _ = fmt.Fprintf(out, "  %s %s\n", color.GreenString("+"), name)
	}
	_, _ = fmt.Fprintf(out, "\nNext: blogbuilder serve --input %s\n", n.Path)
	return nil
}
