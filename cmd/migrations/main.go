package main

import (
	"fmt"
	"github.com/logrusorgru/aurora/v3"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/oniti/migrations/internal/cli"
	"os"
	"time"
)

func main() {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	env := &cli.Env{
		FS:      osfs.New(),
		Stdout:  colorable.NewColorable(os.Stdout),
		Stderr:  colorable.NewColorable(os.Stderr),
		NoColor: !tty || os.Getenv("NO_COLOR") != "",
		Now:     time.Now,
	}

	if err := cli.Run(os.Args[1:], env); err != nil {
		au := aurora.NewAurora(isatty.IsTerminal(os.Stderr.Fd()))
		fmt.Fprintln(env.Stderr, au.Red("migrations error:"), err.Error())
		os.Exit(1)
	}
}
